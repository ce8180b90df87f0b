package keys

import (
	"regexp"
	"strings"
	"testing"
)

const input = "7,1\n11,1\n11,7\n9,7\n9,5\n2,5\n2,3\n7,3\n"

var allowed = regexp.MustCompile(`^[A-Za-z0-9:_=.\-]+$`)

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	k1 := Key("sides", []byte(input))
	k2 := Key("sides", []byte(input))
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !strings.Contains(k1, ":n=8:") {
		t.Fatalf("line count missing from key: %s", k1)
	}
}

func TestNormalization_WhitespaceVariantsProduceSameKey(t *testing.T) {
	messy := "\n 7, 1\r\n11,1\n\n11,7\n9,7\n9,5 \n2,5\n2,3\n7,3"
	k1 := Key(" Sides ", []byte(messy))
	k2 := Key("sides", []byte(input))
	if k1 != k2 {
		t.Fatalf("normalized keys differ:\n k1=%s\n k2=%s", k1, k2)
	}
	if !allowed.MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
}

func TestDifference_OrderAndContainmentMatter(t *testing.T) {
	reordered := "11,1\n7,1\n11,7\n9,7\n9,5\n2,5\n2,3\n7,3\n"
	if Key("sides", []byte(input)) == Key("sides", []byte(reordered)) {
		t.Fatalf("vertex order must change the key")
	}
	if Key("sides", []byte(input)) == Key("perimeter", []byte(input)) {
		t.Fatalf("containment must change the key")
	}
}

func TestJobKey_SanitizedAndBounded(t *testing.T) {
	k := JobKey("job: 42/ä")
	if !allowed.MatchString(k) {
		t.Fatalf("job key has disallowed characters: %s", k)
	}
	if !strings.HasPrefix(k, "rect:v1:job:job-") {
		t.Fatalf("unexpected job key: %s", k)
	}

	long := JobKey(strings.Repeat("a", 500))
	if len(long) > len("rect:v1:job:")+128+17 {
		t.Fatalf("long job key not bounded: len=%d", len(long))
	}
	if long == JobKey(strings.Repeat("a", 499)) {
		t.Fatalf("truncated keys must still differ by hash")
	}
}
