package discovery

import "testing"

func TestServiceTypeIsWellFormed(t *testing.T) {
	if ServiceType != "_ssrender._tcp" {
		t.Fatalf("unexpected service type %q", ServiceType)
	}
}
