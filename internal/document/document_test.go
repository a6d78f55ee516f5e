package document

import (
	"reflect"
	"testing"
)

func testDoc() *Document {
	d := &Document{
		ID: "doc-1",
		Lines: []Line{
			{LineNumber: 1, Text: "first", PageNumber: 1},
			{LineNumber: 2, Text: "second", PageNumber: 1, IsLocked: true},
			{LineNumber: 3, Text: "third", PageNumber: 2, IsPlaceholder: true, PlaceholderNames: []string{"name"}},
		},
	}
	d.Renumber()
	return d
}

func TestRenumber(t *testing.T) {
	d := testDoc()

	// Simulate a delete leaving a numbering gap
	d.Lines = append(d.Lines[:1], d.Lines[2:]...)
	d.Renumber()

	if len(d.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(d.Lines))
	}
	for i, l := range d.Lines {
		if l.LineNumber != i+1 {
			t.Errorf("line at index %d has number %d, want %d", i, l.LineNumber, i+1)
		}
	}
	if d.Metadata.TotalLines != 2 {
		t.Errorf("totalLines = %d, want 2", d.Metadata.TotalLines)
	}
	if d.Metadata.TotalPages != 2 {
		t.Errorf("totalPages = %d, want 2", d.Metadata.TotalPages)
	}
}

func TestLineLookup(t *testing.T) {
	d := testDoc()

	l, ok := d.Line(2)
	if !ok {
		t.Fatal("expected line 2 to exist")
	}
	if l.Text != "second" {
		t.Errorf("line 2 text = %q, want %q", l.Text, "second")
	}

	if _, ok := d.Line(99); ok {
		t.Error("expected line 99 to be absent")
	}
}

func TestCloneIndependence(t *testing.T) {
	d := testDoc()
	c := d.Clone()

	if !reflect.DeepEqual(d, c) {
		t.Fatal("clone differs from original")
	}

	c.Lines[0].Text = "mutated"
	c.Lines[2].PlaceholderNames[0] = "changed"
	c.Renumber()

	if d.Lines[0].Text != "first" {
		t.Error("mutating clone text affected original")
	}
	if d.Lines[2].PlaceholderNames[0] != "name" {
		t.Error("mutating clone placeholder names affected original")
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		if err := testDoc().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("sparse numbering", func(t *testing.T) {
		d := testDoc()
		d.Lines[1].LineNumber = 5
		if err := d.Validate(); err == nil {
			t.Error("expected error for sparse numbering")
		}
	})

	t.Run("decreasing page number", func(t *testing.T) {
		d := testDoc()
		d.Lines[2].PageNumber = 0
		if err := d.Validate(); err == nil {
			t.Error("expected error for invalid page number")
		}
	})

	t.Run("stale metadata", func(t *testing.T) {
		d := testDoc()
		d.Metadata.TotalLines = 99
		if err := d.Validate(); err == nil {
			t.Error("expected error for stale totalLines")
		}
	})
}

func TestLinesOnPage(t *testing.T) {
	d := testDoc()
	got := d.LinesOnPage(1)
	want := []int{1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LinesOnPage(1) = %v, want %v", got, want)
	}
	if nums := d.LinesOnPage(7); nums != nil {
		t.Errorf("LinesOnPage(7) = %v, want nil", nums)
	}
}
