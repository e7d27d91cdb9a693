package adapters

import (
	"bufio"
	"bytes"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"
	"strings"
)

// RealOSDetector reads the host distribution from an os-release file
type RealOSDetector struct {
	fileSystem interfaces.FileSystem
	path       string
}

// NewRealOSDetector creates a new RealOSDetector
func NewRealOSDetector(fs interfaces.FileSystem, path string) interfaces.OSDetector {
	return &RealOSDetector{
		fileSystem: fs,
		path:       path,
	}
}

// DetectOS returns the distribution named by the os-release file
func (d *RealOSDetector) DetectOS() (interfaces.HostOS, error) {
	releaseInfo, err := d.parseOSRelease()
	if err != nil {
		return interfaces.HostOS{}, errors.NewSystemError("OS detection failed: cannot read "+d.path, err)
	}

	id, ok := releaseInfo["ID"]
	if !ok || id == "" {
		return interfaces.HostOS{}, errors.NewSystemError("OS detection failed: no ID field in "+d.path, nil)
	}

	return interfaces.HostOS{
		ID:         strings.ToLower(id),
		VersionID:  releaseInfo["VERSION_ID"],
		PrettyName: releaseInfo["PRETTY_NAME"],
	}, nil
}

// parseOSRelease parses KEY=value lines, skipping comments
func (d *RealOSDetector) parseOSRelease() (map[string]string, error) {
	content, err := d.fileSystem.ReadFile(d.path)
	if err != nil {
		return nil, err
	}

	releaseInfo := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		releaseInfo[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	return releaseInfo, scanner.Err()
}
