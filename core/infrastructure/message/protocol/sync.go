package protocol

import "fmt"

// SyncFrames 把一份存档拆成 SYNC 和若干 SYNCPART，存档不能为空
func SyncFrames(snapshot []byte) []*Message {
	frames := make([]*Message, 0, 1+(len(snapshot)+SyncChunkSize-1)/SyncChunkSize)
	frames = append(frames, Sync(len(snapshot)))
	for off := 0; off < len(snapshot); off += SyncChunkSize {
		end := min(off+SyncChunkSize, len(snapshot))
		frames = append(frames, SyncPart(snapshot[off:end]))
	}
	return frames
}

// SyncBuffer 客户端重组同步数据
type SyncBuffer struct {
	buf    []byte
	filled int
	active bool
}

// Begin 收到 SYNC，丢弃之前未完成的数据
func (s *SyncBuffer) Begin(length int) error {
	s.Reset()
	switch {
	case length < 0:
		return fmt.Errorf("%w: %d", ErrSyncNegative, length)
	case length == 0:
		return ErrSyncEmpty
	case length > MaxSyncSize:
		return fmt.Errorf("%w: %d", ErrSyncTooLarge, length)
	}
	s.buf = make([]byte, length)
	s.active = true
	return nil
}

// Append 收到 SYNCPART；返回完整数据时表示同步结束
func (s *SyncBuffer) Append(part []byte) ([]byte, error) {
	if !s.active {
		return nil, ErrSyncNotStarted
	}
	if s.filled+len(part) > len(s.buf) {
		s.Reset()
		return nil, ErrSyncOverflow
	}
	s.filled += copy(s.buf[s.filled:], part)
	if s.filled < len(s.buf) {
		return nil, nil
	}
	data := s.buf
	s.Reset()
	return data, nil
}

// Pending 是否有未完成的同步
func (s *SyncBuffer) Pending() bool {
	return s.active
}

// Reset 丢弃未完成的数据
func (s *SyncBuffer) Reset() {
	s.buf = nil
	s.filled = 0
	s.active = false
}
