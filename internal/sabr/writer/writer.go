// Package writer implements the per-format progress store and final
// assembler described in spec.md §4.6: it turns the stream of MediaSegment
// events a session emits for one format into append-only part files plus a
// protobuf progress document, and on Finish concatenates them into the
// final output.
package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmylchreest/sabrgo/internal/sabr"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// Writer owns one format's on-disk state: its progress document and the
// sequence-group/init-segment part files it references. It is not safe for
// concurrent use; spec.md §5 gives each writer to exactly one consumer.
type Writer struct {
	finalPath string
	docPath   string

	doc *wire.ProgressDocument

	downloadedBytes int64
}

// LoadProgressDocument reads and decodes the progress document for
// finalPath, returning (nil, nil) if none exists yet. Callers use this
// before constructing a Session to resume (spec.md §4.6 "Resume").
func LoadProgressDocument(finalPath string) (*wire.ProgressDocument, error) {
	b, err := os.ReadFile(progressPath(finalPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("writer: reading progress document: %w", err)
	}
	doc := &wire.ProgressDocument{}
	if err := doc.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("writer: decoding progress document: %w", err)
	}
	return doc, nil
}

func progressPath(finalPath string) string {
	return finalPath + ".sabr.binpb"
}

// Open loads finalPath's progress document if one exists, or starts a fresh
// one otherwise.
func Open(finalPath string) (*Writer, error) {
	doc, err := LoadProgressDocument(finalPath)
	if err != nil {
		return nil, err
	}
	w := &Writer{finalPath: finalPath, docPath: progressPath(finalPath)}
	if doc != nil {
		w.doc = doc
		w.downloadedBytes = documentBytes(doc)
	}
	return w, nil
}

func documentBytes(doc *wire.ProgressDocument) int64 {
	var total int64
	if doc.InitSegment != nil {
		total += doc.InitSegment.ContentLength
	}
	for _, g := range doc.Sequences {
		for _, seg := range g.Segments {
			total += seg.ContentLength
		}
	}
	return total
}

// DownloadedBytes returns the aggregate content length recorded across the
// init segment and every sequence group (spec.md §4.6 step 6).
func (w *Writer) DownloadedBytes() int64 {
	return w.downloadedBytes
}

// Write persists one MediaSegment event: spec.md §4.6 steps 1-6.
func (w *Writer) Write(ev sabr.MediaSegment) error {
	id := ev.FormatID
	switch {
	case w.doc == nil:
		w.doc = &wire.ProgressDocument{FormatID: &id}
	case w.doc.FormatID == nil:
		w.doc.FormatID = &id
	case !sameFormat(*w.doc.FormatID, id):
		return fmt.Errorf("writer: format id mismatch for %s: progress document has itag %d, segment has itag %d",
			w.finalPath, w.doc.FormatID.Itag, id.Itag)
	}

	if ev.IsInitSegment {
		if w.doc.InitSegment != nil {
			return fmt.Errorf("writer: duplicate init segment delivered for %s", w.finalPath)
		}
		name := w.finalPath + ".seqinit.sabr.part"
		if err := appendToFile(name, ev.Data); err != nil {
			return err
		}
		w.doc.InitSegment = &wire.InitSegmentRecord{Filename: name, ContentLength: int64(len(ev.Data))}
	} else {
		group := w.findOrCreateGroup(ev.FragmentIndex)
		if err := appendToFile(group.Filename, ev.Data); err != nil {
			return err
		}
		group.Segments = append(group.Segments, &wire.SegmentRecord{
			SequenceNumber: int32(ev.FragmentIndex),
			ContentLength:  int64(len(ev.Data)),
		})
	}

	w.downloadedBytes += int64(len(ev.Data))
	return w.rewriteDocument()
}

// findOrCreateGroup returns the sequence group seq extends, or a new one
// starting at seq if it doesn't extend any existing group (spec.md §4.6
// step 4's "contiguous run of sequence numbers").
func (w *Writer) findOrCreateGroup(seq int64) *wire.SequenceGroup {
	for _, g := range w.doc.Sequences {
		if n := len(g.Segments); n > 0 && int64(g.Segments[n-1].SequenceNumber)+1 == seq {
			return g
		}
	}
	g := &wire.SequenceGroup{
		StartNumber: int32(seq),
		Filename:    fmt.Sprintf("%s.seq%d.sabr.part", w.finalPath, seq),
	}
	w.doc.Sequences = append(w.doc.Sequences, g)
	return g
}

func sameFormat(a, b wire.FormatId) bool {
	return a.Itag == b.Itag && a.Lmt == b.Lmt && a.Xtags == b.Xtags
}

// rewriteDocument atomically replaces the progress document with the
// current in-memory state: write to a sibling temp file, then rename over
// the original so a crash mid-write never leaves a truncated document.
func (w *Writer) rewriteDocument() error {
	dir := filepath.Dir(w.docPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(w.docPath)+"-*")
	if err != nil {
		return fmt.Errorf("writer: creating temp progress document: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(w.doc.Marshal()); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("writer: writing progress document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writer: closing progress document: %w", err)
	}
	if err := os.Rename(tempPath, w.docPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writer: renaming progress document into place: %w", err)
	}
	return nil
}

func appendToFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("writer: opening %s: %w", name, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writer: writing %s: %w", name, err)
	}
	return nil
}

// Finish concatenates the init segment (if any) and every sequence group in
// ascending start-number order into the final output, then removes the
// progress document and part files (spec.md §4.6 "On finish").
func (w *Writer) Finish() error {
	if w.doc == nil {
		return fmt.Errorf("writer: finish called for %s with no segments ever written", w.finalPath)
	}

	dir := filepath.Dir(w.finalPath)
	tmp, err := os.CreateTemp(dir, filepath.Base(w.finalPath)+"-*")
	if err != nil {
		return fmt.Errorf("writer: creating temp output file: %w", err)
	}
	tempPath := tmp.Name()

	if err := w.assemble(tmp); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writer: closing temp output file: %w", err)
	}
	if err := os.Rename(tempPath, w.finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("writer: renaming output into place: %w", err)
	}

	w.cleanupParts()
	return nil
}

func (w *Writer) assemble(dst io.Writer) error {
	if w.doc.InitSegment != nil {
		if err := copyFileInto(dst, w.doc.InitSegment.Filename); err != nil {
			return err
		}
	}

	groups := append([]*wire.SequenceGroup(nil), w.doc.Sequences...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].StartNumber < groups[j].StartNumber })
	for _, g := range groups {
		if err := copyFileInto(dst, g.Filename); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) cleanupParts() {
	if w.doc.InitSegment != nil {
		os.Remove(w.doc.InitSegment.Filename)
	}
	for _, g := range w.doc.Sequences {
		os.Remove(g.Filename)
	}
	os.Remove(w.docPath)
}

func copyFileInto(dst io.Writer, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("writer: opening %s: %w", srcPath, err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("writer: copying %s: %w", srcPath, err)
	}
	return nil
}
