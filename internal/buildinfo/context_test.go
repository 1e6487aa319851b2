package buildinfo

import (
	"strings"
	"testing"
)

func TestContext_Version(t *testing.T) {
	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: UnknownValue,
		},
		{
			name: "empty version",
			ctx:  NewContext("", "2024-01-01", "abc123"),
			want: UnknownValue,
		},
		{
			name: "valid version",
			ctx:  NewContext("1.0.0", "2024-01-01", "abc123"),
			want: "1.0.0",
		},
		{
			name: "version with pre-release tag",
			ctx:  NewContext("1.0.0-beta.1", "2024-01-01", "abc123"),
			want: "1.0.0-beta.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ctx.Version()
			if got != tt.want {
				t.Errorf("Context.Version() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContext_BuildDateAndCommit(t *testing.T) {
	var nilCtx *Context
	if got := nilCtx.BuildDate(); got != UnknownValue {
		t.Errorf("nil BuildDate() = %v, want %v", got, UnknownValue)
	}

	ctx := NewContext("1.0.0", "2024-01-01T00:00:00Z", "abc123")
	if got := ctx.BuildDate(); got != "2024-01-01T00:00:00Z" {
		t.Errorf("BuildDate() = %v", got)
	}
	if got := ctx.Commit(); got != "abc123" {
		t.Errorf("Commit() = %v", got)
	}
}

func TestContext_String(t *testing.T) {
	got := NewContext("1.0.0", "", "abc123").String()
	for _, want := range []string{"activity-loader 1.0.0", "commit abc123", "built " + UnknownValue} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
