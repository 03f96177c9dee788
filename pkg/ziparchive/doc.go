// Package ziparchive composes a single deflate-compressed zip archive from
// many streams without buffering them in memory.
//
// # Writing
//
// Use [Begin] to start an archive and [Writer.Add] to register named streams.
// Registration only records the stream; nothing is read until
// [Writer.Finalize] drives the read-compress-write loop. Finalize may run
// concurrently with Add: it drains entries in registration order and waits for
// more until [Writer.Seal] is called.
//
//	arc := ziparchive.Begin(ziparchive.WithLevel(flate.BestCompression))
//	go func() {
//	    defer arc.Seal()
//	    for _, f := range files {
//	        arc.Add(f.Name, f.Body)
//	    }
//	}()
//	if err := arc.Finalize(ctx, dst); err != nil {
//	    // *ArchiveWriteError; close every registered body and dst yourself
//	}
//
// Every entry uses the Deflate method. The archive never closes the readers it
// was given nor the destination: their lifecycle belongs to the caller.
//
// # Reading
//
// [List] reads the central directory of a finished archive.
package ziparchive
