package batch

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitItems(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "only whitespace",
			text: "   \n\t\r\n   ",
			want: nil,
		},
		{
			name: "plain lines",
			text: "photosynthesis\nmitochondria\nosmosis",
			want: []string{"photosynthesis", "mitochondria", "osmosis"},
		},
		{
			name: "dash only lines dropped",
			text: "cell\n---\n - \nnucleus",
			want: []string{"cell", "nucleus"},
		},
		{
			name: "bullets kept verbatim",
			text: "- cell membrane\n* ribosome",
			want: []string{"- cell membrane", "* ribosome"},
		},
		{
			name: "windows and old mac line endings",
			text: "apple\r\npear\rplum",
			want: []string{"apple", "pear", "plum"},
		},
		{
			name: "repeated text keeps both",
			text: "cat\ncat",
			want: []string{"cat", "cat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitItems(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitItems() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed markers",
			text: "Intro line\n- cell membrane\n  * ribosome\n+ not a bullet\n-\n- golgi apparatus",
			want: []string{"cell membrane", "ribosome", "golgi apparatus"},
		},
		{
			name: "no bullets",
			text: "one\ntwo",
			want: nil,
		},
		{
			name: "marker without space",
			text: "-nucleus\n*vacuole",
			want: []string{"nucleus", "vacuole"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseList(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadItemsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.txt")
	if err := os.WriteFile(path, []byte("Heading\n- alpha\n- beta\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadItemsFile(path, false)
	if err != nil {
		t.Fatalf("ReadItemsFile() error = %v", err)
	}
	if want := []string{"Heading", "- alpha", "- beta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReadItemsFile() = %q, want %q", got, want)
	}

	got, err = ReadItemsFile(path, true)
	if err != nil {
		t.Fatalf("ReadItemsFile(list) error = %v", err)
	}
	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ReadItemsFile(list) = %q, want %q", got, want)
	}
}

func TestReadItemsFile_NotFound(t *testing.T) {
	if _, err := ReadItemsFile("/nonexistent/file.txt", false); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestCap(t *testing.T) {
	items := []string{"a", "b", "c"}

	if got, err := Cap(items, 3); err != nil || len(got) != 3 {
		t.Errorf("Cap(3) = %v, %v", got, err)
	}
	if _, err := Cap(items, 0); err != nil {
		t.Errorf("Cap(0) error = %v, want nil", err)
	}

	_, err := Cap(items, 2)
	var tooMany *TooManyItemsError
	if !errors.As(err, &tooMany) {
		t.Fatalf("Cap(2) error = %v, want *TooManyItemsError", err)
	}
	if tooMany.Count != 3 || tooMany.Max != 2 {
		t.Errorf("TooManyItemsError = %+v", tooMany)
	}
}
