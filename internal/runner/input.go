package runner

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/projectdiscovery/find-sshable/pkg/discovery/common"
	"github.com/projectdiscovery/find-sshable/pkg/types"
	"github.com/projectdiscovery/gologger"
	"github.com/tidwall/gjson"
)

// loadHosts reads the json lines written by -json. Records without a port
// take defaultPort. Invalid lines are skipped, later duplicates of an
// address are dropped and the result is sorted by address.
func loadHosts(path string, defaultPort int) ([]types.Host, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	seen := make(map[string]struct{})
	var hosts []types.Host

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			gologger.Warning().Msgf("%s:%d: skipping invalid json", path, lineNo)
			continue
		}

		result := gjson.Parse(line)
		record := &types.HostRecord{
			Name:      result.Get("name").String(),
			IP:        result.Get("ip").String(),
			Port:      int(result.Get("port").Int()),
			Timestamp: result.Get("timestamp").String(),
			ScanID:    result.Get("scan_id").String(),
			Passive:   result.Get("passive").Bool(),
		}
		result.Get("auth_methods").ForEach(func(_, value gjson.Result) bool {
			record.AuthMethods = append(record.AuthMethods, value.String())
			return true
		})
		if record.Port == 0 {
			record.Port = defaultPort
		}
		if record.Name == "" {
			record.Name = record.IP
		}
		if err := record.Validate(); err != nil {
			gologger.Warning().Msgf("%s:%d: skipping record: %s", path, lineNo, err)
			continue
		}

		host := record.Host()
		key := host.IP.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		hosts = append(hosts, host)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hosts, func(i, j int) bool {
		return common.CompareIP(hosts[i].IP, hosts[j].IP) < 0
	})
	return hosts, nil
}
