package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "input error",
			code:    "E100",
			wantMsg: "Malformed widget state",
			wantCat: CategoryInput,
		},
		{
			name:    "registry error",
			code:    "E110",
			wantMsg: "Unknown widget",
			wantCat: CategoryRegistry,
		},
		{
			name:    "transport error",
			code:    "E121",
			wantMsg: "Server rejected request",
			wantCat: CategoryTransport,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	cause := stderrors.New("strconv.Atoi: parsing \"ten\": invalid syntax")
	err := New("E100").WithDetail(`attribute "max"`).Wrap(cause)

	got := err.Error()
	if !strings.HasPrefix(got, "E100: Malformed widget state") {
		t.Errorf("Error() = %q, want E100 prefix", got)
	}
	if !strings.Contains(got, `attribute "max"`) {
		t.Errorf("Error() = %q, missing detail", got)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("stepper: %w", New("E120"))

	if !HasCode(err, "E120") {
		t.Error("HasCode(E120) = false, want true")
	}
	if HasCode(err, "E121") {
		t.Error("HasCode(E121) = true, want false")
	}
	if CodeOf(err) != "E120" {
		t.Errorf("CodeOf = %q, want E120", CodeOf(err))
	}
	if CodeOf(stderrors.New("plain")) != "" {
		t.Error("CodeOf(plain) should be empty")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E120") != nil {
		t.Error("FromError(nil) should return nil")
	}

	coded := New("E122")
	if got := FromError(fmt.Errorf("wrap: %w", coded), "E120"); got != coded {
		t.Error("FromError should return the coded error already in the chain")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, "E120")
	if got.Code != "E120" || got.Wrapped != plain {
		t.Errorf("FromError(plain) = %+v", got)
	}
}

func TestFormatJSON(t *testing.T) {
	js := New("E123").WithDetail("modalDelete").FormatJSON()
	for _, want := range []string{`"code":"E123"`, `"category":"transport"`, `"detail":"modalDelete"`} {
		if !strings.Contains(js, want) {
			t.Errorf("FormatJSON() = %s, missing %s", js, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	Register("E199", ErrorTemplate{Category: CategoryCLI, Message: "custom"})
	if _, ok := GetTemplate("E199"); !ok {
		t.Fatal("registered template not found")
	}
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
}
