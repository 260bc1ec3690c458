// Package chunk reads documents that were indexed as overlapping chunks.
//
// Very large documents are split at index time into fixed-size windows of
// words. Consecutive windows share ChunkOverlap words so that phrases near a
// window edge can still match inside a single record. Each window is stored
// as its own record, and the document's header record follows its chunks.
//
// # Geometry
//
// With ChunkSize 125 and ChunkOverlap 25 the bump is 100: chunk k of a
// document starts at document word position k*100. A 250 word document
// becomes three chunks whose first positions are 0, 100 and 200.
//
// # Loading
//
// Source loads and tokenizes one chunk at a time. Every chunk but the last
// drops the words that the next chunk starts with, so the loaded chunks tile
// the document without overlap:
//
//	src, err := chunk.NewSource(snapshot, docMap, docID, "text", tokenizer)
//	if err != nil {
//	    return err
//	}
//	it := chunk.NewWordIter(src)
//	for {
//	    ok, err := it.Next(ctx, true)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(it.WordPos(), it.Term())
//	}
//
// Loaded chunks are kept in a small cache (DefaultCacheSize). The oldest
// load is evicted first regardless of how often it was read.
//
// # Sections
//
// A chunk with no words marks a section boundary. WordIter.Next and Prev stop
// at a boundary unless called with force. Seeking with force directly onto a
// boundary chunk is an error (ErrEmptyChunkSeek) because no word can be
// found there.
//
// # Marks
//
// MarkPos records a word position together with a chunk number and a byte
// offset in that chunk's text. TextTo and CountTextTo stitch the text of the
// intervening chunks together, reloading any that were evicted.
//
// Source and WordIter are not safe for concurrent use. Loaded Chunks and
// HeaderMap are immutable.
package chunk
