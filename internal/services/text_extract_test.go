package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDeckTextPlain(t *testing.T) {
	got, err := ExtractDeckText("notes.txt", "text/plain", []byte("  Photosynthesis\n\n converts\tlight  "))
	if err != nil {
		t.Fatalf("ExtractDeckText: %v", err)
	}
	if got != "Photosynthesis converts light" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractDeckTextMarkdown(t *testing.T) {
	got, err := ExtractDeckText("week1.md", "", []byte("# Week 1\n\nCell biology basics."))
	if err != nil {
		t.Fatalf("ExtractDeckText: %v", err)
	}
	if !strings.Contains(got, "Cell biology basics.") {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractDeckTextHTML(t *testing.T) {
	html := `<!DOCTYPE html><html><body><h1>Mitosis</h1><p>Cells&nbsp;divide &amp; grow.</p></body></html>`
	got, err := ExtractDeckText("deck.html", "text/html", []byte(html))
	if err != nil {
		t.Fatalf("ExtractDeckText: %v", err)
	}
	if got != "Mitosis Cells divide & grow." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractDeckTextDOCX(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Enzymes lower</w:t></w:r><w:r><w:t>activation energy.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{
		"[Content_Types].xml": `<Types/>`,
		"word/document.xml":   doc,
	})
	got, err := ExtractDeckText("deck.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", data)
	if err != nil {
		t.Fatalf("ExtractDeckText: %v", err)
	}
	if got != "Enzymes lower activation energy." {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestExtractDeckTextPPTX(t *testing.T) {
	slide1 := `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <a:t>Slide one:</a:t><a:t>osmosis</a:t>
</p:sld>`
	slide2 := `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <a:t>Slide two:</a:t><a:t>diffusion</a:t>
</p:sld>`
	data := buildZip(t, map[string]string{
		"[Content_Types].xml":    `<Types/>`,
		"ppt/slides/slide1.xml":  slide1,
		"ppt/slides/slide2.xml":  slide2,
		"ppt/slides/_rels/extra": "not xml",
	})
	got, err := ExtractDeckText("deck.pptx", "", data)
	if err != nil {
		t.Fatalf("ExtractDeckText: %v", err)
	}
	for _, want := range []string{"Slide one:", "osmosis", "Slide two:", "diffusion"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestExtractDeckTextEmpty(t *testing.T) {
	if _, err := ExtractDeckText("deck.pdf", "application/pdf", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestExtractDeckTextCorruptClaims(t *testing.T) {
	junk := []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE}

	cases := []struct {
		name string
		mime string
		want string
	}{
		{"deck.pdf", "application/pdf", "claims pdf"},
		{"deck.docx", "", "claims docx"},
		{"deck.pptx", "", "claims pptx"},
	}
	for _, tc := range cases {
		_, err := ExtractDeckText(tc.name, tc.mime, junk)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q error, got %v", tc.name, tc.want, err)
		}
	}
}

func TestExtractDeckTextUnknownBinary(t *testing.T) {
	junk := []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE}
	_, err := ExtractDeckText("deck.bin", "application/octet-stream", junk)
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("expected unsupported file type error, got %v", err)
	}
}

func TestExtractDeckTextAmbiguousZip(t *testing.T) {
	data := buildZip(t, map[string]string{"readme.txt": "just a zip"})
	if _, err := ExtractDeckText("deck.zip", "application/zip", data); err == nil {
		t.Fatal("expected error for a zip that is neither docx nor pptx")
	}
}

func TestExtractDeckTextEmptyDOCX(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml": `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body/></w:document>`,
	})
	if _, err := ExtractDeckText("deck.docx", "", data); err == nil {
		t.Fatal("expected error when docx contains no text")
	}
}
