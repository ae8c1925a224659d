package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// snapshot returns every path below root with file contents
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			tree[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return tree
}

func TestEnsureDomainIsIdempotent(t *testing.T) {
	layout := NewLayout(t.TempDir(), "acme")
	state := New(layout, nil)

	if err := state.EnsureProject(); err != nil {
		t.Fatal(err)
	}
	if err := state.EnsureDomain("example.com"); err != nil {
		t.Fatal(err)
	}
	if err := state.AppendNote("example.com", "keep me"); err != nil {
		t.Fatal(err)
	}
	first := snapshot(t, layout.Root)

	if err := state.EnsureProject(); err != nil {
		t.Fatal(err)
	}
	if err := state.EnsureDomain("example.com"); err != nil {
		t.Fatal(err)
	}
	second := snapshot(t, layout.Root)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tree changed on second ensure:\n%v\n%v", first, second)
	}
	if second["example.com/Notes.txt"] != "keep me\n" {
		t.Fatalf("notes truncated: %q", second["example.com/Notes.txt"])
	}
}

func TestDomainSkeletonHasNoModeSubtrees(t *testing.T) {
	layout := NewLayout(t.TempDir(), "acme")
	state := New(layout, nil)
	if err := state.EnsureDomain("example.com"); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		layout.Passive("example.com"),
		layout.IPs("example.com"),
		layout.Notes("example.com"),
		layout.Timeline("example.com"),
		layout.LogFile("example.com"),
		filepath.Join(layout.Domain("example.com"), "Post-Exploitation", "Lateral-Movement"),
	} {
		if _, err := os.Stat(want); err != nil {
			t.Errorf("missing %s", want)
		}
	}
	for _, absent := range []string{layout.Active("example.com"), layout.VulnScan("example.com"), layout.Report()} {
		if _, err := os.Stat(absent); !os.IsNotExist(err) {
			t.Errorf("%s should not exist yet", absent)
		}
	}
}

func TestEnsureFileNeverClobbers(t *testing.T) {
	state := New(NewLayout(t.TempDir(), "acme"), nil)
	path := filepath.Join(state.Layout().Root, "README.md")

	created, err := state.EnsureFile(path, "first\n")
	if err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	created, err = state.EnsureFile(path, "second\n")
	if err != nil || created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "first\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestClaimIPGroupOnce(t *testing.T) {
	state := New(NewLayout(t.TempDir(), "acme"), nil)
	if err := state.EnsureDomain("example.com"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			owner, err := state.ClaimIPGroup("example.com", "93.184.216.34")
			if err != nil {
				t.Error(err)
				return
			}
			if owner {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Fatalf("%d callers claimed the IP group, want 1", winners.Load())
	}
	if _, err := os.Stat(state.Layout().IPNmap("example.com", "93.184.216.34")); err != nil {
		t.Fatalf("IP skeleton missing: %v", err)
	}

	if _, err := state.ClaimIPGroup("example.com", "../../etc"); err == nil {
		t.Fatal("expected invalid IP to be rejected")
	}
}

func TestClaimIPGroupAcrossDomains(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs symlinks")
	}
	state := New(NewLayout(t.TempDir(), "acme"), nil)
	domains := []string{"example.com", "example.org", "example.net", "example.io"}
	for _, d := range domains {
		if err := state.EnsureDomain(d); err != nil {
			t.Fatal(err)
		}
	}

	const ip = "10.0.0.9"
	owners := make([]bool, len(domains))
	var wg sync.WaitGroup
	for i, d := range domains {
		wg.Add(1)
		go func(i int, d string) {
			defer wg.Done()
			owner, err := state.ClaimIPGroup(d, ip)
			if err != nil {
				t.Error(err)
			}
			owners[i] = owner
		}(i, d)
	}
	wg.Wait()

	ownerDomain := ""
	for i, owner := range owners {
		if owner {
			if ownerDomain != "" {
				t.Fatalf("%s and %s both own %s", ownerDomain, domains[i], ip)
			}
			ownerDomain = domains[i]
		}
	}
	if ownerDomain == "" {
		t.Fatalf("nobody owns %s", ip)
	}

	layout := state.Layout()
	artifact := Artifact(layout.IPPassive(ownerDomain, ip), "Whois", ip, "txt")
	if err := os.WriteFile(artifact, []byte("NetRange: 10.0.0.0 - 10.255.255.255\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, d := range domains {
		if d == ownerDomain {
			continue
		}
		info, err := os.Lstat(layout.IPPassive(d, ip))
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			t.Fatalf("%s: IP Passive folder should link to the owner's: %v", d, err)
		}
		data, err := os.ReadFile(Artifact(layout.IPPassive(d, ip), "Whois", ip, "txt"))
		if err != nil || !strings.Contains(string(data), "NetRange") {
			t.Fatalf("%s: lookups not reachable through the link: %v", d, err)
		}
		if _, err := os.Stat(layout.Subdomains(d, ip)); err != nil {
			t.Fatalf("%s: Subdomains folder missing: %v", d, err)
		}
	}

	if owner, err := state.ClaimIPGroup("example.org", ip); err != nil || owner {
		t.Fatalf("second claim: owner=%v err=%v", owner, err)
	}
}

func TestConcurrentNotesDoNotInterleave(t *testing.T) {
	state := New(NewLayout(t.TempDir(), "acme"), nil)
	if err := state.EnsureDomain("example.com"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.AppendNote("example.com", "Subdomain dead.example.com unresolvable: no such host")
		}()
	}
	wg.Wait()

	data, _ := os.ReadFile(state.Layout().Notes("example.com"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		if line != "Subdomain dead.example.com unresolvable: no such host" {
			t.Fatalf("corrupted line %q", line)
		}
	}
}

func TestLiveSubdomainsReadsTree(t *testing.T) {
	state := New(NewLayout(t.TempDir(), "acme"), nil)
	if live, err := state.LiveSubdomains("example.com"); err != nil || len(live) != 0 {
		t.Fatalf("live=%v err=%v", live, err)
	}

	pairs := []Live{
		{IP: "10.0.0.2", Subdomain: "b.example.com"},
		{IP: "10.0.0.1", Subdomain: "www.example.com"},
		{IP: "10.0.0.1", Subdomain: "api.example.com"},
	}
	for _, p := range pairs {
		if _, err := state.ClaimIPGroup("example.com", p.IP); err != nil {
			t.Fatal(err)
		}
		if err := state.EnsureSubdomain("example.com", p.IP, p.Subdomain); err != nil {
			t.Fatal(err)
		}
	}

	live, err := state.LiveSubdomains("example.com")
	if err != nil {
		t.Fatal(err)
	}
	want := append([]Live(nil), pairs...)
	sort.Slice(want, func(i, j int) bool {
		if want[i].IP != want[j].IP {
			return want[i].IP < want[j].IP
		}
		return want[i].Subdomain < want[j].Subdomain
	})
	if !reflect.DeepEqual(live, want) {
		t.Fatalf("live = %v, want %v", live, want)
	}
}

func TestArtifactNaming(t *testing.T) {
	layout := NewLayout("out", "acme")
	if got := Artifact(layout.Passive("example.com"), "Whois", "example.com", "txt"); got != filepath.Join("out", "acme", "example.com", "Info-Gathering", "Passive", "Whois-example.com.txt") {
		t.Fatalf("artifact = %s", got)
	}
	if got := Artifact(layout.Nmap("example.com"), "Nmap", "example.com", ""); filepath.Base(got) != "Nmap-example.com" {
		t.Fatalf("prefix = %s", got)
	}
	if got := layout.ReportData(); got != filepath.Join("out", "acme", "Report", "acme-data.json") {
		t.Fatalf("report data = %s", got)
	}
}
