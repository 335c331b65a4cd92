package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/projectdiscovery/find-sshable/pkg/types"
	"github.com/projectdiscovery/gologger"
)

const noHostsMessage = "No SSH-able devices found."

// formatFound renders the discovered hosts, one "name<TAB>ip" per line
func formatFound(hosts []types.Host) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\nFound %d devices...\n", au.Bold(len(hosts))))
	writeHostLines(&sb, hosts)
	return strings.TrimSuffix(sb.String(), "\n")
}

// formatPlan renders the aliases that are about to be written
func formatPlan(hosts []types.Host) string {
	var sb strings.Builder
	sb.WriteString("\nDevices will be added to your ssh config as follows\n")
	writeHostLines(&sb, hosts)
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeHostLines(sb *strings.Builder, hosts []types.Host) {
	for _, host := range hosts {
		sb.WriteString(host.String())
		sb.WriteString("\n")
	}
}

// writeJSON prints one json record per host
func writeJSON(hosts []types.Host, scanID string, passive bool) error {
	for _, host := range hosts {
		record := types.NewHostRecord(host, scanID, passive)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		gologger.Silent().Msg(string(data))
	}
	return nil
}
