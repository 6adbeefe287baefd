package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCodeExtraction(t *testing.T) {
	err := New(CodeCharacterNotFound)
	if !IsCode(err, CodeCharacterNotFound) {
		t.Fatal("expected code match")
	}
	if IsCode(err, CodeEmptySheetText) {
		t.Fatal("unexpected code match")
	}
	if GetCode(stderrors.New("plain")) != CodeUnknown {
		t.Fatal("plain errors must resolve to CodeUnknown")
	}
	if GetCode(nil) != CodeUnknown {
		t.Fatal("nil must resolve to CodeUnknown")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(CodePictureFetchFailed, cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("cause lost in wrap")
	}
	if !IsCode(err, CodePictureFetchFailed) {
		t.Fatal("code lost in wrap")
	}

	wrapped := fmt.Errorf("fetch: %w", err)
	if !IsCode(wrapped, CodePictureFetchFailed) {
		t.Fatal("code not found through fmt wrapping")
	}
}

func TestMetadata(t *testing.T) {
	err := NewWithMetadata(CodeStaticMessageNotFound, map[string]string{"command": "hilfe"})
	meta := GetMetadata(err)
	if meta["command"] != "hilfe" {
		t.Fatalf("metadata = %v", meta)
	}
	if GetMetadata(stderrors.New("plain")) != nil {
		t.Fatal("plain errors carry no metadata")
	}
}
