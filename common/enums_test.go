package common

import "testing"

func TestParseShorthandType(t *testing.T) {
	tests := []struct {
		in      string
		want    ShorthandType
		wantErr bool
	}{
		{"fall-through", ShorthandTypeFallThrough, false},
		{"fall_through", ShorthandTypeFallThrough, false},
		{"FallThrough", ShorthandTypeFallThrough, false},
		{"replicate", ShorthandTypeReplicate, false},
		{"Box", ShorthandTypeBox, false},
		{" recursive ", ShorthandTypeRecursive, false},
		{"spiral", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseShorthandType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseShorthandType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseShorthandType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShorthandType_String(t *testing.T) {
	if got := ShorthandTypeBox.String(); got != "box" {
		t.Errorf("String() = %q, want box", got)
	}
	if got := ShorthandType(42).String(); got != "ShorthandType(42)" {
		t.Errorf("String() = %q", got)
	}
	if ShorthandType(42).IsValid() {
		t.Error("ShorthandType(42) must not be valid")
	}
}

func TestShorthandType_UnmarshalText(t *testing.T) {
	var st ShorthandType
	if err := st.UnmarshalText([]byte("replicate")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if st != ShorthandTypeReplicate {
		t.Errorf("got %v, want replicate", st)
	}
	if err := st.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestParseOutputFmt(t *testing.T) {
	for i, name := range OutputFmtNames() {
		got, err := ParseOutputFmt(name)
		if err != nil {
			t.Fatalf("ParseOutputFmt(%q) error = %v", name, err)
		}
		if got != OutputFmt(i) {
			t.Errorf("ParseOutputFmt(%q) = %v, want %v", name, got, OutputFmt(i))
		}
	}
	if _, err := ParseOutputFmt("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestOutputFmt_Ext(t *testing.T) {
	tests := []struct {
		fmt  OutputFmt
		want string
	}{
		{OutputFmtText, ".txt"},
		{OutputFmtYaml, ".yaml"},
		{OutputFmtCss, ".css"},
		{OutputFmtIon, ".ion"},
	}
	for _, tt := range tests {
		if got := tt.fmt.Ext(); got != tt.want {
			t.Errorf("%v.Ext() = %q, want %q", tt.fmt, got, tt.want)
		}
	}
}
