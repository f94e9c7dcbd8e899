package commands

import (
	"fmt"
	"time"
)

// TimestampLayout names the per-run scratch directory on the instance.
const TimestampLayout = "20060102150405"

// Clock returns the current time. Handlers take one so builds are reproducible in tests.
type Clock func() time.Time

// UTC is the production clock.
func UTC() time.Time {
	return time.Now().UTC()
}

// Build returns the shell commands that fetch the artifact, unpack it under
// /tmp/<timestamp> and run the bundled Ansible playbook against the local host.
func Build(artifact string, ts time.Time) []string {
	stamp := ts.UTC().Format(TimestampLayout)
	return []string{
		"aws configure set s3.signature_version s3v4",
		fmt.Sprintf("aws s3 cp %s /tmp/%s.zip --quiet", artifact, stamp),
		fmt.Sprintf("unzip -qq /tmp/%s.zip -d /tmp/%s", stamp, stamp),
		fmt.Sprintf("bash /tmp/%s/generate_inventory_file.sh", stamp),
		fmt.Sprintf(`ansible-playbook -i "/tmp/inventory" /tmp/%s/ansible/playbook.yml`, stamp),
	}
}
