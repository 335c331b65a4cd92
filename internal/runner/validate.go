package runner

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/projectdiscovery/gologger"
	fileutil "github.com/projectdiscovery/utils/file"
)

var (
	errInvalidPort        = errors.New("port must be between 1 and 65535")
	errInvalidConcurrency = errors.New("concurrency must be greater than zero")
	errInvalidTimeout     = errors.New("timeout must be greater than zero")
)

// validate checks the options and compiles the host pattern
func (options *Options) validate() error {
	if options.Port < 1 || options.Port > 65535 {
		return errInvalidPort
	}
	if options.Concurrency < 1 {
		return errInvalidConcurrency
	}
	if options.Timeout <= 0 {
		return errInvalidTimeout
	}
	if options.Deadline < 0 {
		return fmt.Errorf("deadline must not be negative: %s", options.Deadline)
	}
	if options.HostPattern != "" {
		pattern, err := regexp.Compile(options.HostPattern)
		if err != nil {
			return fmt.Errorf("invalid host pattern %q: %w", options.HostPattern, err)
		}
		options.pattern = pattern
	}
	if options.InputJSON != "" && !fileutil.FileExists(options.InputJSON) {
		return fmt.Errorf("input file %s does not exist", options.InputJSON)
	}
	if options.InputJSON != "" && len(options.Targets) > 0 {
		gologger.Warning().Msgf("-target is ignored when -input-json is set")
	}
	if strings.ContainsAny(options.HostPrefix, " \t") {
		return fmt.Errorf("host prefix %q must not contain whitespace", options.HostPrefix)
	}
	if strings.TrimSpace(options.Marker) == "" {
		return errors.New("marker must not be empty")
	}
	return nil
}
