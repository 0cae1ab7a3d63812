// Package ustar reads and writes USTAR tar archives.
//
// An archive is a sequence of 512-byte header records, each followed by its
// payload zero-padded to the next 512-byte boundary, and terminated by two
// zero-filled records. All numeric header fields are ASCII octal text and
// every header carries a checksum, so corruption is detected rather than
// misread.
//
// An [Engine] owns one archive stream and its cursor. It exposes three
// layers:
//
//   - Navigation: [Engine.Rewind], [Engine.ReadHeader], [Engine.Advance],
//     [Engine.Find] and [Engine.All] walk the header records.
//   - Streaming: [Engine.WriteHeader], [Engine.WriteData], [Engine.WriteEntry],
//     [Engine.ReadData] and [Engine.ExtractEntry] move payload bytes.
//   - Trees: [Engine.ArchiveTree], [Engine.Extract] and [Engine.ExtractAll]
//     convert between directory trees and archives.
//
// # Quick Start
//
// Archive a directory:
//
//	e, err := ustar.Create("src.tar")
//	if err != nil {
//	    return err
//	}
//	if err := e.ArchiveTree(ctx, "./src"); err != nil {
//	    e.Close()
//	    return err
//	}
//	return e.Close() // writes the end-of-archive trailer
//
// Extract everything:
//
//	e, err := ustar.Open("src.tar", ustar.WithOutputDir("/tmp/out"))
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//	return e.ExtractAll(ctx)
//
// Archives served over HTTP with range support can be opened with [OpenURL];
// finding an entry then fetches only header records until the match.
//
// An Engine is not safe for concurrent use. Callers must not interleave an
// archive and an extract operation on the same Engine.
package ustar
