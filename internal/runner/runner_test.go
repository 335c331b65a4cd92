package runner

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/projectdiscovery/find-sshable/pkg/sshconfig"
	"github.com/projectdiscovery/find-sshable/pkg/types"
)

func init() {
	au = aurora.NewAurora(false)
}

func TestBuildEntries(t *testing.T) {
	hosts := []types.Host{
		{Name: "find-sshable.pi", IP: net.ParseIP("10.0.0.5"), Port: 22},
		{Name: "find-sshable.nas", IP: net.ParseIP("10.0.0.9"), Port: 2222},
		{Name: "find-sshable.old", IP: net.ParseIP("10.0.0.10")},
	}

	got := buildEntries(hosts, "pi")
	want := []sshconfig.HostEntry{
		{Alias: "find-sshable.pi", HostName: "10.0.0.5", User: "pi"},
		{Alias: "find-sshable.nas", HostName: "10.0.0.9", User: "pi", Options: []sshconfig.Option{{Key: "Port", Value: "2222"}}},
		{Alias: "find-sshable.old", HostName: "10.0.0.10", User: "pi"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("buildEntries() = %+v, want %+v", got, want)
	}
}

func TestFormat(t *testing.T) {
	hosts := []types.Host{
		{Name: "pi1.lan", IP: net.ParseIP("10.0.0.5")},
		{Name: "pi2.lan", IP: net.ParseIP("10.0.0.6")},
	}

	if got, want := formatFound(hosts), "\nFound 2 devices...\npi1.lan\t10.0.0.5\npi2.lan\t10.0.0.6"; got != want {
		t.Errorf("formatFound() = %q, want %q", got, want)
	}
	if got := formatPlan(hosts); !strings.HasPrefix(got, "\nDevices will be added to your ssh config as follows\npi1.lan\t10.0.0.5") {
		t.Errorf("formatPlan() = %q", got)
	}
}

func TestLoadHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.jsonl")
	lines := []string{
		`{"name":"pi2","ip":"10.0.0.20","port":22,"timestamp":"2024-01-01T00:00:00Z","auth_methods":["publickey"]}`,
		`not json`,
		``,
		`{"name":"nas","ip":"10.0.0.3","port":2222}`,
		`{"ip":"10.0.0.4"}`,
		`{"name":"bad","ip":"10.0.0.999"}`,
		`{"name":"pi2-again","ip":"10.0.0.20","port":22}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatal(err)
	}

	hosts, err := loadHosts(path, 22)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type row struct {
		name string
		ip   string
		port int
	}
	var got []row
	for _, h := range hosts {
		got = append(got, row{h.Name, h.IP.String(), h.Port})
	}
	want := []row{
		{"nas", "10.0.0.3", 2222},
		{"10.0.0.4", "10.0.0.4", 22},
		{"pi2", "10.0.0.20", 22},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loadHosts() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(hosts[2].AuthMethods, []string{"publickey"}) {
		t.Errorf("auth methods = %v", hosts[2].AuthMethods)
	}
}

func TestLoadHostsMissingFile(t *testing.T) {
	if _, err := loadHosts(filepath.Join(t.TempDir(), "absent"), 22); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestFilterHosts(t *testing.T) {
	hosts := []types.Host{
		{Name: "raspberrypi", IP: net.ParseIP("10.0.0.5")},
		{Name: "10.0.0.6", IP: net.ParseIP("10.0.0.6")},
		{Name: "octopi", IP: net.ParseIP("10.0.0.7")},
	}
	pattern := regexp.MustCompile("pi")

	got := filterHosts(hosts, pattern.MatchString)
	if len(got) != 2 || got[0].Name != "raspberrypi" || got[1].Name != "octopi" {
		t.Errorf("filterHosts() = %v", got)
	}
	if len(hosts) != 3 || hosts[1].Name != "10.0.0.6" {
		t.Error("filterHosts modified its input")
	}
}

func TestValidateOptions(t *testing.T) {
	valid := func() *Options {
		return &Options{Port: 22, Concurrency: 128, Timeout: 2 * time.Second, HostPrefix: "find-sshable.", Marker: "find-sshable"}
	}

	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr error
		ok      bool
	}{
		{"defaults", func(*Options) {}, nil, true},
		{"bad port", func(o *Options) { o.Port = 0 }, errInvalidPort, false},
		{"bad concurrency", func(o *Options) { o.Concurrency = 0 }, errInvalidConcurrency, false},
		{"bad timeout", func(o *Options) { o.Timeout = 0 }, errInvalidTimeout, false},
		{"bad pattern", func(o *Options) { o.HostPattern = "(" }, nil, false},
		{"prefix with space", func(o *Options) { o.HostPrefix = "a b" }, nil, false},
		{"empty marker", func(o *Options) { o.Marker = " " }, nil, false},
		{"missing input", func(o *Options) { o.InputJSON = "/nonexistent/hosts.jsonl" }, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := valid()
			tt.modify(options)
			err := options.validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("pattern compiled", func(t *testing.T) {
		options := valid()
		options.HostPattern = "^pi"
		if err := options.validate(); err != nil {
			t.Fatal(err)
		}
		if options.pattern == nil || !options.pattern.MatchString("pi4") {
			t.Error("host pattern was not compiled")
		}
	})
}

func TestRunInputJSONUpdatesSSHConfig(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hosts.jsonl")
	lines := []string{
		`{"name":"pi","ip":"10.0.0.20","port":22}`,
		`{"name":"nas","ip":"10.0.0.3","port":2222}`,
		`{"name":"pi","ip":"10.0.0.7","port":22}`,
	}
	if err := os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "config")
	github := "Host github.com\n    User git\n"
	if err := os.WriteFile(config, []byte(github), 0o600); err != nil {
		t.Fatal(err)
	}

	options := &Options{
		InputJSON:       input,
		UpdateSSHConfig: true,
		SSHConfig:       config,
		Marker:          sshconfig.DefaultMarker,
		HostPrefix:      "find-sshable.",
		SSHUser:         "pi",
		Port:            22,
		Concurrency:     4,
		Timeout:         time.Second,
	}
	findRunner, err := NewRunner(options)
	if err != nil {
		t.Fatal(err)
	}
	if err := findRunner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := github + "\n# BEGIN find-sshable\n" +
		"Host find-sshable.nas\n    HostName 10.0.0.3\n    User pi\n    Port 2222\n\n" +
		"Host find-sshable.pi\n    HostName 10.0.0.7\n    User pi\n\n" +
		"Host find-sshable.pi-1\n    HostName 10.0.0.20\n    User pi\n" +
		"# END find-sshable\n"
	data, err := os.ReadFile(config)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Fatalf("ssh config mismatch\n got: %q\nwant: %q", data, want)
	}

	// a second run over the same input leaves the file as is
	if err := findRunner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if again, _ := os.ReadFile(config); string(again) != want {
		t.Errorf("second run changed the config: %q", again)
	}
}

func TestRunWithoutUpdateLeavesConfig(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "hosts.jsonl")
	if err := os.WriteFile(input, []byte(`{"name":"pi","ip":"10.0.0.7"}`+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "config")

	findRunner, err := NewRunner(&Options{
		InputJSON:   input,
		SSHConfig:   config,
		Marker:      sshconfig.DefaultMarker,
		Port:        22,
		Concurrency: 4,
		Timeout:     time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := findRunner.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(config); !os.IsNotExist(err) {
		t.Errorf("ssh config written without -update-ssh-config: %v", err)
	}
}
