package chunk

import (
	"context"
	"fmt"

	"github.com/dshills/chunkspan/pkg/types"
)

// WordIter walks the words of a chunked document as one continuous
// sequence. Positions are document word positions.
//
// Chunks without words mark section boundaries. Next and Prev stop at a
// boundary unless force is set, in which case they skip over it.
type WordIter struct {
	src     *Source
	chunk   *Chunk
	tokNum  int
	wordPos int
}

// NewWordIter returns an unpositioned iterator over src
func NewWordIter(src *Source) *WordIter {
	return &WordIter{src: src, tokNum: -1, wordPos: -1}
}

// Clone returns an independent iterator at the same position
func (it *WordIter) Clone() *WordIter {
	c := *it
	return &c
}

// Source returns the chunk source the iterator reads from
func (it *WordIter) Source() *Source { return it.src }

// WordPos returns the position of the current word, or -1 before the first
// move.
func (it *WordIter) WordPos() int { return it.wordPos }

// Term returns the current word, or "" if the iterator is unpositioned
func (it *WordIter) Term() string {
	if it.chunk == nil {
		return ""
	}
	return it.chunk.Tokens[it.tokNum].Term
}

// Next moves to the following word. The first call on an unpositioned
// iterator moves to the first word of the document.
func (it *WordIter) Next(ctx context.Context, force bool) (bool, error) {
	if it.chunk == nil {
		if err := it.reseek(ctx, 0); err != nil {
			return false, err
		}
		return true, nil
	}

	if it.tokNum < len(it.chunk.Tokens)-1 {
		it.tokNum++
		it.wordPos += it.chunk.Tokens[it.tokNum].PosIncr
		return true, nil
	}

	num := it.chunk.Num
	for {
		num++
		if !it.src.InMainDoc(num) {
			return false, nil
		}
		next, err := it.src.LoadChunk(ctx, num)
		if err != nil {
			return false, err
		}
		if next.IsBoundary() {
			if !force {
				return false, nil
			}
			continue
		}
		it.moveTo(next)
		return true, nil
	}
}

// Prev moves to the preceding word
func (it *WordIter) Prev(ctx context.Context, force bool) (bool, error) {
	if it.chunk == nil {
		return false, nil
	}

	if it.tokNum > 0 {
		it.wordPos -= it.chunk.Tokens[it.tokNum].PosIncr
		it.tokNum--
		return true, nil
	}

	num := it.chunk.Num
	for {
		num--
		if !it.src.InMainDoc(num) {
			return false, nil
		}
		prev, err := it.src.LoadChunk(ctx, num)
		if err != nil {
			return false, err
		}
		if prev.IsBoundary() {
			if !force {
				return false, nil
			}
			continue
		}
		it.moveTo(prev)
		for it.tokNum < len(prev.Tokens)-1 {
			it.tokNum++
			it.wordPos += prev.Tokens[it.tokNum].PosIncr
		}
		return true, nil
	}
}

// SeekFirst moves to the first word whose position is >= pos. If there is no
// such word the iterator stays on the last word it could reach.
func (it *WordIter) SeekFirst(ctx context.Context, pos int, force bool) error {
	if force {
		if err := it.reseek(ctx, pos); err != nil {
			return err
		}
	}
	if err := it.ensurePositioned(ctx, force); err != nil {
		return err
	}

	for pos <= it.wordPos {
		ok, err := it.Prev(ctx, force)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	for pos > it.wordPos {
		ok, err := it.Next(ctx, force)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

// SeekLast moves to the last word whose position is <= pos. If there is no
// such word the iterator stays on the first word it could reach.
func (it *WordIter) SeekLast(ctx context.Context, pos int, force bool) error {
	if force {
		if err := it.reseek(ctx, pos); err != nil {
			return err
		}
	}
	if err := it.ensurePositioned(ctx, force); err != nil {
		return err
	}

	for pos >= it.wordPos {
		ok, err := it.Next(ctx, force)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	for pos < it.wordPos {
		ok, err := it.Prev(ctx, force)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

// Pos returns a mark for the current word at granularity g
func (it *WordIter) Pos(g types.Granularity) (MarkPos, error) {
	var m MarkPos
	err := it.FillPos(&m, g)
	return m, err
}

// FillPos sets m to the current word at granularity g. FieldStart and
// FieldEnd produce an unset mark since a chunked field has no single start
// or end offset.
func (it *WordIter) FillPos(m *MarkPos, g types.Granularity) error {
	switch g {
	case types.FieldStart, types.FieldEnd:
		*m = unsetMark()
		return nil
	case types.TermStart, types.TermEnd, types.TermEndPlus:
	default:
		return fmt.Errorf("%w: %d", types.ErrUnknownGranularity, g)
	}

	if it.chunk == nil {
		return types.ErrNotPositioned
	}

	tok := it.chunk.Tokens[it.tokNum]
	charPos := tok.Start
	switch g {
	case types.TermEnd:
		charPos = tok.End
	case types.TermEndPlus:
		if it.tokNum == len(it.chunk.Tokens)-1 {
			charPos = len(it.chunk.Text)
		} else {
			charPos = it.chunk.Tokens[it.tokNum+1].Start
		}
	}

	*m = MarkPos{
		src:      it.src,
		chunkNum: it.chunk.Num,
		wordPos:  it.wordPos,
		charPos:  charPos,
	}
	return nil
}

func (it *WordIter) ensurePositioned(ctx context.Context, force bool) error {
	if it.chunk != nil {
		return nil
	}
	_, err := it.Next(ctx, force)
	return err
}

// reseek positions the iterator on the first word of the chunk expected to
// hold pos, unless the current chunk already covers it.
func (it *WordIter) reseek(ctx context.Context, pos int) error {
	if it.chunk != nil && pos >= it.chunk.MinWordPos && pos < it.chunk.MaxWordPos {
		return nil
	}

	num := pos/it.src.Bump() + it.src.FirstChunk()
	if pos < 0 {
		num = it.src.FirstChunk()
	}
	if num > it.src.LastChunk() {
		num = it.src.LastChunk()
	}

	c, err := it.src.LoadChunk(ctx, num)
	if err != nil {
		return err
	}
	if c.IsBoundary() {
		return fmt.Errorf("%w: chunk %d of doc %d (pos %d)", types.ErrEmptyChunkSeek, num, it.src.DocID(), pos)
	}

	it.moveTo(c)
	return nil
}

// moveTo positions the iterator on the first word of c
func (it *WordIter) moveTo(c *Chunk) {
	it.chunk = c
	it.tokNum = 0
	it.wordPos = c.MinWordPos - 1 + c.Tokens[0].PosIncr
}
