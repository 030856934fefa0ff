// Package proto is the newline-delimited wire protocol spoken between
// the server and its clients. One command or message per line, UTF-8,
// fields separated by single spaces. The server side builds lines with
// the constructors below; the client side decodes them into a closed
// Message variant with Parse.
package proto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/igs-sky/1A2B-Game/internal/strpool"
)

const (
	cmdCheckID       = "CHECK_ID"
	cmdHand          = "HAND"
	cmdStatus        = "STATUS"
	cmdTool          = "TOOL"
	cmdUsedTool      = "USED_TOOL"
	cmdOppTool       = "OPP_TOOL"
	cmdPos           = "POS"
	cmdPosResult     = "POS_RESULT"
	cmdShuffleResult = "SHUFFLE_RESULT"
	cmdExcludeResult = "EXCLUDE_RESULT"
	cmdDoubleActive  = "DOUBLE_ACTIVE"
	cmdReshuffleDone = "RESHUFFLE_DONE"
	cmdGuess         = "GUESS"
	cmdResult        = "RESULT"
	cmdOppGuess      = "OPP_GUESS"
	cmdWinner        = "WINNER"
	cmdDraw          = "DRAW"
	cmdDisconnected  = "DISCONNECTED"
	cmdHeartbeat     = "HEARTBEAT"
)

// HeartbeatAck is the only client command recognized out of band.
const HeartbeatAck = "HEARTBEAT_ACK"

// SkipTool is the client reply that declines the tool phase.
const SkipTool = "-1"

type Kind uint8

const (
	KindCheckID Kind = iota + 1
	KindHand
	KindStatus
	KindTool
	KindUsedTool
	KindOppTool
	KindPos
	KindPosResult
	KindShuffleResult
	KindExcludeResult
	KindDoubleActive
	KindReshuffleDone
	KindGuess
	KindResult
	KindOppGuess
	KindWinner
	KindDraw
	KindDisconnected
	KindHeartbeat
)

var ErrUnknownMessage = fmt.Errorf("unknown message")

// Message is a decoded server line. Only the fields relevant to Kind
// are set.
type Message struct {
	Kind Kind

	Name    string
	Tool    string
	Numbers []string
	Tools   []string
	Pos     int
	Digit   string
	Digits  string
	Guess   string
	A, B    int
}

func CheckID() string   { return cmdCheckID }
func Tool() string      { return cmdTool }
func Pos() string       { return cmdPos }
func Heartbeat() string { return cmdHeartbeat }
func Draw() string      { return cmdDraw }

// Hand is rebuilt on every prompt and replay, so the line is composed
// through the builder pool instead of Sprintf.
func Hand(numbers, tools []string) string {
	b := strpool.Get()
	defer strpool.Put(b)

	b.WriteString(cmdHand)
	b.WriteByte(' ')
	writeCards(b, numbers)
	b.WriteByte(';')
	writeCards(b, tools)

	return b.String()
}

func Status(name string) string { return cmdStatus + " " + name }

func UsedTool(tool string) string { return cmdUsedTool + " " + tool }

func OppTool(name, tool string) string { return fmt.Sprintf("%s %s %s", cmdOppTool, name, tool) }

func PosResult(pos int, digit string) string {
	return fmt.Sprintf("%s %d %s", cmdPosResult, pos, digit)
}

func ShuffleResult(answer []string) string {
	return cmdShuffleResult + " " + strings.Join(answer, "")
}

func ExcludeResult(digit string) string { return cmdExcludeResult + " " + digit }

func DoubleActive() string { return cmdDoubleActive }

func ReshuffleDone() string { return cmdReshuffleDone }

func Guess(numberHand []string) string {
	b := strpool.Get()
	defer strpool.Put(b)

	b.WriteString(cmdGuess)
	b.WriteByte(' ')
	writeCards(b, numberHand)

	return b.String()
}

func Result(a, b int) string { return fmt.Sprintf("%s %d %d", cmdResult, a, b) }

func OppGuess(name, guess string, a, b int) string {
	return fmt.Sprintf("%s %s %s %d %d", cmdOppGuess, name, guess, a, b)
}

func Winner(name string) string { return cmdWinner + " " + name }

func Disconnected(name string) string { return cmdDisconnected + " " + name }

// Parse decodes one server line. Unknown or short lines come back as
// ErrUnknownMessage; numeric fields that fail to parse surface their
// strconv error.
func Parse(line string) (Message, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Message{}, ErrUnknownMessage
	}

	msg := Message{}
	var err error

	switch fields[0] {
	case cmdCheckID:
		msg.Kind = KindCheckID
	case cmdTool:
		msg.Kind = KindTool
	case cmdPos:
		msg.Kind = KindPos
	case cmdHeartbeat:
		msg.Kind = KindHeartbeat
	case cmdDraw:
		msg.Kind = KindDraw
	case cmdDoubleActive:
		msg.Kind = KindDoubleActive
	case cmdReshuffleDone:
		msg.Kind = KindReshuffleDone
	case cmdHand:
		msg.Kind = KindHand
		body := strings.TrimPrefix(line, cmdHand+" ")
		parts := strings.SplitN(body, ";", 2)
		if len(parts) != 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Numbers = splitCards(parts[0])
		msg.Tools = splitCards(parts[1])
	case cmdStatus:
		if len(fields) < 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindStatus
		msg.Name = fields[1]
	case cmdUsedTool:
		if len(fields) < 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindUsedTool
		msg.Tool = fields[1]
	case cmdOppTool:
		if len(fields) < 3 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindOppTool
		msg.Name = fields[1]
		msg.Tool = fields[2]
	case cmdPosResult:
		if len(fields) < 3 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindPosResult
		if msg.Pos, err = strconv.Atoi(fields[1]); err != nil {
			return Message{}, fmt.Errorf("pos field: %w", err)
		}
		msg.Digit = fields[2]
	case cmdShuffleResult:
		if len(fields) < 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindShuffleResult
		msg.Digits = fields[1]
	case cmdExcludeResult:
		msg.Kind = KindExcludeResult
		if len(fields) > 1 {
			msg.Digit = fields[1]
		}
	case cmdGuess:
		msg.Kind = KindGuess
		if len(fields) > 1 {
			msg.Numbers = splitCards(fields[1])
		}
	case cmdResult:
		if len(fields) < 3 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindResult
		if msg.A, err = strconv.Atoi(fields[1]); err != nil {
			return Message{}, fmt.Errorf("a field: %w", err)
		}
		if msg.B, err = strconv.Atoi(fields[2]); err != nil {
			return Message{}, fmt.Errorf("b field: %w", err)
		}
	case cmdOppGuess:
		if len(fields) < 5 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindOppGuess
		msg.Name = fields[1]
		msg.Guess = fields[2]
		if msg.A, err = strconv.Atoi(fields[3]); err != nil {
			return Message{}, fmt.Errorf("a field: %w", err)
		}
		if msg.B, err = strconv.Atoi(fields[4]); err != nil {
			return Message{}, fmt.Errorf("b field: %w", err)
		}
	case cmdWinner:
		if len(fields) < 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindWinner
		msg.Name = fields[1]
	case cmdDisconnected:
		if len(fields) < 2 {
			return Message{}, ErrUnknownMessage
		}
		msg.Kind = KindDisconnected
		msg.Name = fields[1]
	default:
		return Message{}, ErrUnknownMessage
	}

	return msg, nil
}

func splitCards(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func writeCards(b *strings.Builder, cards []string) {
	for i, c := range cards {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c)
	}
}
