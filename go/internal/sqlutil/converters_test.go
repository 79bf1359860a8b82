package sqlutil

import "testing"

func TestToSqlStringNonBlank(t *testing.T) {
	blank := "   "
	task := "  Payments "

	tests := []struct {
		name  string
		in    *string
		valid bool
		want  string
	}{
		{name: "nil", in: nil},
		{name: "blank", in: &blank},
		{name: "trimmed", in: &task, valid: true, want: "Payments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToSqlStringNonBlank(tt.in)
			if got.Valid != tt.valid || got.String != tt.want {
				t.Errorf("expected {%q %v}, got {%q %v}", tt.want, tt.valid, got.String, got.Valid)
			}
		})
	}
}

func TestFromSqlStringPtrCopies(t *testing.T) {
	in := ToSqlString(nil)
	if FromSqlStringPtr(in) != nil {
		t.Fatal("expected nil for invalid NullString")
	}

	v := "8"
	ns := ToSqlString(&v)
	p := FromSqlStringPtr(ns)
	if p == nil || *p != "8" {
		t.Fatalf("expected 8, got %v", p)
	}
	*p = "13"
	if ns.String != "8" {
		t.Errorf("result should not alias the NullString")
	}
}
