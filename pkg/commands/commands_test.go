package commands

import (
	"reflect"
	"testing"
	"time"
)

func TestBuild(t *testing.T) {
	ts := time.Date(2016, 3, 18, 19, 20, 29, 0, time.UTC)
	got := Build("s3://garlc-artifacts/GARLC/App/abc.zip", ts)

	want := []string{
		"aws configure set s3.signature_version s3v4",
		"aws s3 cp s3://garlc-artifacts/GARLC/App/abc.zip /tmp/20160318192029.zip --quiet",
		"unzip -qq /tmp/20160318192029.zip -d /tmp/20160318192029",
		"bash /tmp/20160318192029/generate_inventory_file.sh",
		`ansible-playbook -i "/tmp/inventory" /tmp/20160318192029/ansible/playbook.yml`,
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() =\n%v\nwant\n%v", got, want)
	}
}

func TestBuildUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	ts := time.Date(2016, 3, 18, 11, 20, 29, 0, loc)

	got := Build("s3://b/k", ts)
	if got[1] != "aws s3 cp s3://b/k /tmp/20160318192029.zip --quiet" {
		t.Errorf("timestamp not normalized to UTC: %s", got[1])
	}
}

func TestBuildDeterministic(t *testing.T) {
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Build("s3://b/k", ts)
	b := Build("s3://b/k", ts)
	if !reflect.DeepEqual(a, b) {
		t.Error("Build() is not deterministic for a fixed timestamp")
	}
}
