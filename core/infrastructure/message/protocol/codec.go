package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/uakfdotb/p-levelup/runtime/game/engines/levelup"
)

// Encode 编码一帧：帧头、opcode、负载
// 整数为大端 int32，字符串为 uint16 长度前缀的 UTF-8。
func Encode(dir Direction, m *Message) ([]byte, error) {
	e := &encoder{}
	e.buf.WriteByte(Header)
	e.buf.WriteByte(byte(m.Op))

	server := dir == ToClient
	switch m.Op {
	case OpJoin:
		if server {
			e.i32(m.PID)
		} else {
			e.utf(m.Name)
		}
	case OpJoinOther:
		e.i32(m.PID)
		e.utf(m.Name)
	case OpLeaveOther:
		e.i32(m.PID)
	case OpGameLoaded, OpNoop:
	case OpStateChange, OpBetCounter, OpRoundCounter, OpSync, OpNewPID, OpResized:
		e.i32(m.Value)
	case OpDeclare:
		if server {
			e.i32(m.PID)
		}
		e.i32(int(m.Suit))
		e.i32(m.Amount)
	case OpWithdraw:
		if server {
			e.i32(m.PID)
		}
	case OpDefend:
		if server {
			e.i32(m.PID)
		}
		e.i32(m.Amount)
	case OpPlayCards:
		if len(m.Cards) != len(m.Amounts) {
			return nil, ErrAmountMismatch
		}
		if server {
			e.i32(m.PID)
		}
		e.cards(m.Cards)
		e.i32(len(m.Amounts))
		for _, a := range m.Amounts {
			e.i32(a)
		}
	case OpPlayError:
		e.utf(m.Text)
	case OpDealtCard:
		e.card(m.Card())
	case OpBottom, OpSelectBottom:
		e.cards(m.Cards)
	case OpChat:
		if server {
			e.utf(m.Name)
		}
		e.utf(m.Text)
	case OpSyncPart:
		if len(m.Data) > SyncChunkSize {
			return nil, fmt.Errorf("%w: %d", ErrSyncChunk, len(m.Data))
		}
		e.u16(len(m.Data))
		e.buf.Write(m.Data)
	case OpSwap:
		e.i32(m.PID)
		e.i32(m.Other)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOpcode, m.Op)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
	err error
	tmp [4]byte
}

func (e *encoder) i32(v int) {
	binary.BigEndian.PutUint32(e.tmp[:], uint32(int32(v)))
	e.buf.Write(e.tmp[:4])
}

func (e *encoder) u16(v int) {
	binary.BigEndian.PutUint16(e.tmp[:2], uint16(v))
	e.buf.Write(e.tmp[:2])
}

func (e *encoder) utf(s string) {
	if len(s) > math.MaxUint16 {
		e.err = ErrStringTooLong
		return
	}
	e.u16(len(s))
	e.buf.WriteString(s)
}

func (e *encoder) card(c levelup.Card) {
	e.i32(int(c.Suit))
	e.i32(c.Rank)
}

func (e *encoder) cards(cards []levelup.Card) {
	e.i32(len(cards))
	for _, c := range cards {
		e.card(c)
	}
}

// Decoder 从字节流中逐帧解码
type Decoder struct {
	r   *bufio.Reader
	dir Direction
	tmp [4]byte
}

// NewDecoder dir 为要读取的帧的方向
func NewDecoder(r io.Reader, dir Direction) *Decoder {
	return &Decoder{r: bufio.NewReader(r), dir: dir}
}

// Decode 读取一帧，任何错误都应断开连接
func (d *Decoder) Decode() (*Message, error) {
	header, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if header != Header {
		return nil, fmt.Errorf("%w: %d", ErrBadHeader, header)
	}
	op, err := d.r.ReadByte()
	if err != nil {
		return nil, unexpected(err)
	}

	m := &Message{Op: Opcode(op)}
	if err := d.payload(m); err != nil {
		return nil, unexpected(err)
	}
	return m, nil
}

func (d *Decoder) payload(m *Message) (err error) {
	server := d.dir == ToClient
	switch m.Op {
	case OpJoin:
		if server {
			m.PID, err = d.i32()
		} else {
			m.Name, err = d.utf()
		}
		return err
	case OpNoop:
		return nil
	case OpDeclare:
		if server {
			if m.PID, err = d.i32(); err != nil {
				return err
			}
		}
		suit, err := d.i32()
		if err != nil {
			return err
		}
		m.Suit = levelup.Suit(suit)
		m.Amount, err = d.i32()
		return err
	case OpWithdraw:
		if server {
			m.PID, err = d.i32()
		}
		return err
	case OpDefend:
		if server {
			if m.PID, err = d.i32(); err != nil {
				return err
			}
		}
		m.Amount, err = d.i32()
		return err
	case OpPlayCards:
		if server {
			if m.PID, err = d.i32(); err != nil {
				return err
			}
		}
		if m.Cards, err = d.cards(); err != nil {
			return err
		}
		n, err := d.count()
		if err != nil {
			return err
		}
		m.Amounts = make([]int, n)
		for i := range m.Amounts {
			if m.Amounts[i], err = d.i32(); err != nil {
				return err
			}
		}
		if n != len(m.Cards) {
			return ErrAmountMismatch
		}
		return nil
	case OpSelectBottom:
		m.Cards, err = d.cards()
		return err
	case OpChat:
		if server {
			if m.Name, err = d.utf(); err != nil {
				return err
			}
		}
		m.Text, err = d.utf()
		return err
	}

	if !server {
		return fmt.Errorf("%w: %s", ErrUnknownOpcode, m.Op)
	}

	switch m.Op {
	case OpJoinOther:
		if m.PID, err = d.i32(); err != nil {
			return err
		}
		m.Name, err = d.utf()
	case OpLeaveOther:
		m.PID, err = d.i32()
	case OpGameLoaded:
	case OpStateChange, OpBetCounter, OpRoundCounter, OpSync, OpNewPID, OpResized:
		m.Value, err = d.i32()
	case OpPlayError:
		m.Text, err = d.utf()
	case OpDealtCard:
		var c levelup.Card
		c, err = d.card()
		m.Cards = []levelup.Card{c}
	case OpBottom:
		m.Cards, err = d.cards()
	case OpSyncPart:
		var n int
		if n, err = d.u16(); err != nil {
			return err
		}
		if n > SyncChunkSize {
			return fmt.Errorf("%w: %d", ErrSyncChunk, n)
		}
		m.Data = make([]byte, n)
		_, err = io.ReadFull(d.r, m.Data)
	case OpSwap:
		if m.PID, err = d.i32(); err != nil {
			return err
		}
		m.Other, err = d.i32()
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownOpcode, m.Op)
	}
	return err
}

func (d *Decoder) i32() (int, error) {
	if _, err := io.ReadFull(d.r, d.tmp[:4]); err != nil {
		return 0, err
	}
	return int(int32(binary.BigEndian.Uint32(d.tmp[:4]))), nil
}

func (d *Decoder) u16() (int, error) {
	if _, err := io.ReadFull(d.r, d.tmp[:2]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(d.tmp[:2])), nil
}

func (d *Decoder) utf() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) count() (int, error) {
	n, err := d.i32()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxListLen {
		return 0, fmt.Errorf("%w: %d", ErrListTooLong, n)
	}
	return n, nil
}

func (d *Decoder) card() (levelup.Card, error) {
	suit, err := d.i32()
	if err != nil {
		return levelup.Card{}, err
	}
	rank, err := d.i32()
	if err != nil {
		return levelup.Card{}, err
	}
	c := levelup.NewCard(levelup.Suit(suit), rank)
	if !c.Valid() {
		return levelup.Card{}, fmt.Errorf("%w: %d/%d", ErrInvalidCard, suit, rank)
	}
	return c, nil
}

func (d *Decoder) cards() ([]levelup.Card, error) {
	n, err := d.count()
	if err != nil {
		return nil, err
	}
	cards := make([]levelup.Card, 0, n)
	for i := 0; i < n; i++ {
		c, err := d.card()
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// unexpected 帧中途结束视为截断
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
