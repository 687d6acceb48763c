package models

import "testing"

func TestDriverReferenceRoundTrip(t *testing.T) {
	cases := []struct {
		name, id string
	}{
		{"Ali", "D1"},
		{"Ali Hassan", "42"},
		{"Odd (ID:name)", "X-7"},
		{"علي", "D9"},
	}
	for _, c := range cases {
		ref := DriverReference(c.name, c.id)
		got, ok := ParseDriverReference(ref)
		if !ok || got != c.id {
			t.Fatalf("ParseDriverReference(%q) = %q, %v; want %q", ref, got, ok, c.id)
		}
	}
	if ref := DriverReference("Ali", "D1"); ref != "Ali (ID:D1)" {
		t.Fatalf("label=%q", ref)
	}
}

func TestParseDriverReferenceRejectsMalformed(t *testing.T) {
	for _, ref := range []string{"", "Ali", "Ali (ID:)", "Ali (ID:D1", "Ali D1)"} {
		if id, ok := ParseDriverReference(ref); ok {
			t.Fatalf("ParseDriverReference(%q) = %q, want failure", ref, id)
		}
	}
}

func TestTransactionTypeLabels(t *testing.T) {
	if !TransactionCredit.Valid() || !TransactionDeliveryDebit.Valid() {
		t.Fatal("known types must be valid")
	}
	if TransactionType("REFUND").Valid() {
		t.Fatal("unknown type reported valid")
	}
	if TransactionCredit.Label() != "شحن رصيد" || TransactionDeliveryDebit.Label() != "خصم توصيلة" {
		t.Fatal("unexpected labels")
	}
}

func TestStatusLabel(t *testing.T) {
	if (Driver{IsActive: true}).StatusLabel() != StatusActiveLabel {
		t.Fatal("active label")
	}
	if (Driver{}).StatusLabel() != StatusInactiveLabel {
		t.Fatal("inactive label")
	}
}
