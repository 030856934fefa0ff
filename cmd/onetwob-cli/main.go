// Interactive terminal client. It speaks the newline wire protocol
// and nothing else: the server drives the whole game, the client only
// renders prompts and forwards keystrokes.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/enescakir/emoji"
	"github.com/igs-sky/1A2B-Game/internal/proto"
	"github.com/kelseyhightower/envconfig"
)

type config struct {
	// Server address to dial
	Addr string `envconfig:"ONETWOB_SERVER_ADDR" default:"localhost:12345"`

	// Identity token; reuse the same value to reconnect into a running
	// game. Empty lets the server generate one.
	PlayerID string `envconfig:"ONETWOB_PLAYER_ID" default:""`
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "onetwob-cli: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg := config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("processing the config: %w", err)
	}

	conn, err := net.Dial("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	defer conn.Close()

	fmt.Printf("%v connected to %s\n", emoji.GameDie, cfg.Addr)

	// The socket is read in its own goroutine so heartbeats keep being
	// acknowledged while the user is typing.
	msgCh := make(chan proto.Message, 16)
	go func() {
		defer close(msgCh)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			msg, err := proto.Parse(scanner.Text())
			if err != nil {
				continue
			}

			switch msg.Kind {
			case proto.KindHeartbeat:
				_ = send(conn, proto.HeartbeatAck)
			case proto.KindCheckID:
				_ = send(conn, cfg.PlayerID)
			default:
				msgCh <- msg
			}
		}
	}()

	stdin := bufio.NewReader(os.Stdin)
	for msg := range msgCh {
		done, err := handle(conn, stdin, msg)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	return fmt.Errorf("connection closed by server")
}

func handle(conn net.Conn, stdin *bufio.Reader, msg proto.Message) (bool, error) {
	switch msg.Kind {
	case proto.KindHand:
		fmt.Printf("your number cards: %s\n", strings.Join(msg.Numbers, ","))
		fmt.Printf("your tool cards:   %s\n\n", strings.Join(msg.Tools, ","))

	case proto.KindStatus:
		fmt.Printf("waiting for %s to act...\n\n", msg.Name)

	case proto.KindTool:
		return false, reply(conn, stdin, "use a tool card? enter its number, or -1 to skip: ")

	case proto.KindUsedTool:
		fmt.Printf("you used %s\n\n", msg.Tool)

	case proto.KindOppTool:
		fmt.Printf("%s used %s\n\n", msg.Name, msg.Tool)

	case proto.KindPos:
		return false, reply(conn, stdin, "position to reveal (1-4): ")

	case proto.KindPosResult:
		fmt.Printf("position %d holds %s\n\n", msg.Pos, msg.Digit)

	case proto.KindShuffleResult:
		fmt.Printf("opponent's answer scrambled: %s\n\n", msg.Digits)

	case proto.KindExcludeResult:
		fmt.Printf("digit %s is not in the opponent's answer\n\n", msg.Digit)

	case proto.KindDoubleActive:
		fmt.Printf("double guess active this turn\n\n")

	case proto.KindReshuffleDone:
		fmt.Printf("number hand reshuffled\n\n")

	case proto.KindGuess:
		fmt.Printf("cards you can play: %s\n", strings.Join(msg.Numbers, ","))
		return false, reply(conn, stdin, "your 4-digit guess: ")

	case proto.KindResult:
		fmt.Printf("your result: %dA%dB\n\n", msg.A, msg.B)

	case proto.KindOppGuess:
		fmt.Printf("%s guessed %s => %dA%dB\n\n", msg.Name, msg.Guess, msg.A, msg.B)

	case proto.KindDisconnected:
		fmt.Printf("%s lost connection\n\n", msg.Name)

	case proto.KindWinner:
		fmt.Printf("%v game over, winner: %s\n", emoji.Star, msg.Name)
		return true, nil

	case proto.KindDraw:
		fmt.Println("game over: draw")
		return true, nil
	}

	return false, nil
}

func reply(conn net.Conn, stdin *bufio.Reader, prompt string) error {
	fmt.Print(prompt)

	line, err := stdin.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	return send(conn, strings.TrimSpace(line))
}

func send(conn net.Conn, line string) error {
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	return nil
}
