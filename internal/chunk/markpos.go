package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/chunkspan/pkg/logger"
	"github.com/dshills/chunkspan/pkg/types"
)

// maxQuietChunkSpan is the number of chunk boundaries a text extraction may
// cross before a warning is logged.
const maxQuietChunkSpan = 2

// MarkPos is a saved position inside a chunked document: the word position,
// the chunk it falls in and a byte offset into that chunk's text.
//
// Marks keep only the chunk number and re-resolve the text through their
// source, so they stay valid after the chunk is evicted from the cache.
type MarkPos struct {
	src      *Source
	chunkNum int
	wordPos  int
	charPos  int
}

func unsetMark() MarkPos {
	return MarkPos{chunkNum: -1, wordPos: -1, charPos: -1}
}

func (m MarkPos) WordPos() int  { return m.wordPos }
func (m MarkPos) CharPos() int  { return m.charPos }
func (m MarkPos) ChunkNum() int { return m.chunkNum }

// IsSet reports whether the mark refers to a place in a document
func (m MarkPos) IsSet() bool {
	return m.src != nil && m.chunkNum >= 0
}

// Compare orders marks by chunk number, then byte offset
func (m MarkPos) Compare(other MarkPos) int {
	switch {
	case m.chunkNum < other.chunkNum:
		return -1
	case m.chunkNum > other.chunkNum:
		return 1
	case m.charPos < other.charPos:
		return -1
	case m.charPos > other.charPos:
		return 1
	default:
		return 0
	}
}

// CountTextTo returns the number of bytes between m and other. A nil other
// counts to the end of m's chunk.
func (m MarkPos) CountTextTo(ctx context.Context, other *MarkPos) (int, error) {
	cur, err := m.chunk(ctx)
	if err != nil {
		return 0, err
	}
	if other == nil {
		return len(cur.Text) - m.charPos, nil
	}
	if err := m.checkForward(*other); err != nil {
		return 0, err
	}
	if other.chunkNum == m.chunkNum {
		return other.charPos - m.charPos, nil
	}

	count := len(cur.Text) - m.charPos
	for num := m.chunkNum + 1; num < other.chunkNum; num++ {
		c, err := m.src.LoadChunk(ctx, num)
		if err != nil {
			return 0, err
		}
		count += len(c.Text)
	}
	return count + other.charPos, nil
}

// TextTo returns the text between m and other. A nil other returns the rest
// of m's chunk.
func (m MarkPos) TextTo(ctx context.Context, other *MarkPos) (string, error) {
	cur, err := m.chunk(ctx)
	if err != nil {
		return "", err
	}
	if other == nil {
		return cur.Text[m.charPos:], nil
	}
	if err := m.checkForward(*other); err != nil {
		return "", err
	}
	if other.chunkNum == m.chunkNum {
		return cur.Text[m.charPos:other.charPos], nil
	}

	if other.chunkNum-m.chunkNum > maxQuietChunkSpan {
		logger.WithFields(logrus.Fields{
			"doc":        m.src.DocID(),
			"from_chunk": m.chunkNum,
			"to_chunk":   other.chunkNum,
		}).Warn("text extraction spans many chunks")
	}

	var b strings.Builder
	b.WriteString(cur.Text[m.charPos:])
	for num := m.chunkNum + 1; num < other.chunkNum; num++ {
		c, err := m.src.LoadChunk(ctx, num)
		if err != nil {
			return "", err
		}
		b.WriteString(c.Text)
	}
	last, err := m.src.LoadChunk(ctx, other.chunkNum)
	if err != nil {
		return "", err
	}
	b.WriteString(last.Text[:other.charPos])
	return b.String(), nil
}

func (m MarkPos) chunk(ctx context.Context) (*Chunk, error) {
	if !m.IsSet() {
		return nil, types.ErrNotPositioned
	}
	return m.src.LoadChunk(ctx, m.chunkNum)
}

func (m MarkPos) checkForward(other MarkPos) error {
	if !other.IsSet() {
		return types.ErrNotPositioned
	}
	if other.src.DocID() != m.src.DocID() || other.src.Field() != m.src.Field() {
		return fmt.Errorf("%w: doc %d and doc %d", types.ErrMarkMismatch, m.src.DocID(), other.src.DocID())
	}
	if m.Compare(other) > 0 {
		return fmt.Errorf("%w: chunk %d offset %d is after chunk %d offset %d",
			types.ErrBackwardMark, m.chunkNum, m.charPos, other.chunkNum, other.charPos)
	}
	return nil
}
