package project

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/who0xac/reconify/pkg/logging"
)

// Live is a kept subdomain as recorded in the tree
type Live struct {
	IP        string `json:"ip"`
	Subdomain string `json:"subdomain"`
}

// State realizes the Layout on disk. Every operation is idempotent and safe
// for concurrent use; existing files are never truncated.
type State struct {
	layout Layout
	log    logrus.FieldLogger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a State over layout
func New(layout Layout, log logrus.FieldLogger) *State {
	if log == nil {
		log = logging.Discard()
	}
	return &State{
		layout: layout,
		log:    log,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *State) Layout() Layout {
	return s.layout
}

// Ensure creates the directories if missing
func (s *State) Ensure(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureFile creates path with initial content unless it already exists
func (s *State) EnsureFile(path, initial string) (created bool, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if initial != "" {
		if _, err := file.WriteString(initial); err != nil {
			return true, fmt.Errorf("write %s: %w", path, err)
		}
	}
	s.log.Debugf("created %s", path)
	return true, nil
}

// EnsureProject creates the shared project folders and README
func (s *State) EnsureProject() error {
	if err := s.Ensure(s.layout.CommonDirs()...); err != nil {
		return err
	}
	_, err := s.EnsureFile(s.layout.Readme(), fmt.Sprintf("# %s\n", s.layout.Name))
	return err
}

// EnsureDomain creates the domain skeleton plus its notes, timeline and log
func (s *State) EnsureDomain(domain string) error {
	if err := ValidName(domain); err != nil {
		return err
	}
	if err := s.Ensure(s.layout.DomainSkeleton(domain)...); err != nil {
		return err
	}

	files := []struct {
		path    string
		initial string
	}{
		{s.layout.Notes(domain), ""},
		{s.layout.Timeline(domain), fmt.Sprintf("# Timeline: %s\n\n", domain)},
		{s.layout.LogFile(domain), ""},
	}
	for _, f := range files {
		if _, err := s.EnsureFile(f.path, f.initial); err != nil {
			return err
		}
	}
	return nil
}

// ClaimIPGroup creates the IP folder under domain. owner is true for exactly
// one caller per IP across the whole project; that caller runs the IP-level
// lookups. Other domains get their IP Passive folder linked to the owner's.
func (s *State) ClaimIPGroup(domain, ip string) (owner bool, err error) {
	if net.ParseIP(ip) == nil {
		return false, fmt.Errorf("invalid IP address %q", ip)
	}
	if err := s.Ensure(s.layout.IPs(domain)); err != nil {
		return false, err
	}

	dir := s.layout.IP(domain, ip)
	switch err := os.Mkdir(dir, 0755); {
	case err == nil:
		if owner, err = s.claimLookups(domain, ip); err != nil {
			return false, err
		}
	case errors.Is(err, os.ErrExist):
	default:
		return false, fmt.Errorf("create %s: %w", dir, err)
	}

	err = s.Ensure(
		s.layout.IPNmap(domain, ip),
		s.layout.Subdomains(domain, ip),
	)
	return owner, err
}

// claimLookups makes the project-wide claim for ip. The claim is a symlink
// to domain's IP Passive folder and os.Symlink fails once it exists, so the
// first domain wins.
func (s *State) claimLookups(domain, ip string) (bool, error) {
	passive := s.layout.IPPassive(domain, ip)
	claim := s.layout.IPClaim(ip)
	if err := s.Ensure(filepath.Dir(claim)); err != nil {
		return false, err
	}

	target, err := filepath.Rel(filepath.Dir(claim), passive)
	if err != nil {
		return false, err
	}
	switch err := os.Symlink(target, claim); {
	case err == nil:
		return true, s.Ensure(passive)
	case !errors.Is(err, os.ErrExist):
		return false, fmt.Errorf("claim %s: %w", ip, err)
	}

	owner, err := os.Readlink(claim)
	if err != nil {
		return false, fmt.Errorf("read claim %s: %w", ip, err)
	}
	if !filepath.IsAbs(owner) {
		owner = filepath.Join(filepath.Dir(claim), owner)
	}
	if err := s.Ensure(filepath.Dir(passive)); err != nil {
		return false, err
	}
	link, err := filepath.Rel(filepath.Dir(passive), owner)
	if err != nil {
		return false, err
	}
	if err := os.Symlink(link, passive); err != nil && !errors.Is(err, os.ErrExist) {
		return false, fmt.Errorf("link %s: %w", passive, err)
	}
	s.log.Debugf("%s: lookups for %s already claimed, linked to %s", domain, ip, owner)
	return false, nil
}

// EnsureSubdomain creates the subdomain's Active and Vulnerability-Scan folders
func (s *State) EnsureSubdomain(domain, ip, sub string) error {
	if err := ValidName(sub); err != nil {
		return err
	}
	return s.Ensure(
		s.layout.SubActive(domain, ip, sub),
		s.layout.SubVulnScan(domain, ip, sub),
	)
}

// AppendNote adds one line to the domain's Notes.txt
func (s *State) AppendNote(domain, line string) error {
	return s.appendLine(s.layout.Notes(domain), strings.TrimRight(line, "\n"))
}

// AppendTimeline adds a timestamped entry to the domain's Timeline.md
func (s *State) AppendTimeline(domain, entry string) error {
	line := fmt.Sprintf("- %s %s", s.now().Format(time.RFC3339), entry)
	return s.appendLine(s.layout.Timeline(domain), line)
}

func (s *State) appendLine(path, line string) error {
	lock := s.lock(path)
	lock.Lock()
	defer lock.Unlock()

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

func (s *State) lock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

// LiveSubdomains reads the kept subdomains back from IPs/*/Subdomains/*,
// ordered by IP folder then subdomain name.
func (s *State) LiveSubdomains(domain string) ([]Live, error) {
	return LiveSubdomains(s.layout, domain)
}

// LiveSubdomains is the read-only form used by the report
func LiveSubdomains(layout Layout, domain string) ([]Live, error) {
	ips, err := os.ReadDir(layout.IPs(domain))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var live []Live
	for _, ip := range ips {
		if !ip.IsDir() {
			continue
		}
		subs, err := os.ReadDir(layout.Subdomains(domain, ip.Name()))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, sub := range subs {
			if sub.IsDir() {
				live = append(live, Live{IP: ip.Name(), Subdomain: sub.Name()})
			}
		}
	}
	return live, nil
}

// ValidName rejects names that would escape their parent folder
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid path component %q", name)
	}
	return nil
}
