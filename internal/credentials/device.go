package credentials

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// machineIDPaths are read in order to fingerprint the host.
var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id", "/sys/class/dmi/id/product_uuid"}

// ResolveDeviceID returns configured when set, otherwise a stable id derived
// from the host fingerprint. Hosts without a fingerprint get a random id.
func ResolveDeviceID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if fp := fingerprint(); fp != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fp)).String()
	}
	return uuid.NewString()
}

func fingerprint() string {
	host, _ := os.Hostname()
	for _, p := range machineIDPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return host + "/" + id
		}
	}
	return ""
}
