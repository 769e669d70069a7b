package input

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExpandArgs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.txt")
	if err := os.WriteFile(path, []byte("4\n\n5, 6\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ExpandArgs([]string{"1", "-", "@" + path, "9"}, strings.NewReader("2\n 3 \n"))
	if err != nil {
		t.Fatalf("ExpandArgs: %v", err)
	}
	want := []string{"1", "2", "3", "4", "5", "6", "9"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExpandArgs_Errors(t *testing.T) {
	if _, err := ExpandArgs([]string{"-", "-"}, strings.NewReader("1")); !errors.Is(err, ErrStdinReused) {
		t.Errorf("err = %v, want ErrStdinReused", err)
	}
	if _, err := ExpandArgs([]string{"@" + filepath.Join(t.TempDir(), "missing")}, nil); err == nil {
		t.Error("expected error for missing file")
	}
	// a bare @ is passed through
	got, err := ExpandArgs([]string{"@"}, nil)
	if err != nil || len(got) != 1 || got[0] != "@" {
		t.Errorf("got %v, %v", got, err)
	}
}
