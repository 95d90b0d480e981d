// Command client is a terminal websocket client for playing a party game.
//
//	client -addr localhost:8080 -player alice -room <room id>
//
// Type "guess 42", "guess pizza", "next", "timeup" or "end" and press Enter.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/partygame/network"
)

const heartbeatEvery = 20 * time.Second

var errUsage = errors.New("commands: guess <answer>, next, timeup, end")

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

// parseCommand turns a typed line into a game action. Numeric guesses are
// sent as numbers so the number game accepts them.
func parseCommand(line string) (network.ActionRequest, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "guess", "g":
		if rest == "" {
			return network.ActionRequest{}, errUsage
		}
		var guess any = rest
		if n, err := strconv.Atoi(rest); err == nil {
			guess = n
		}
		return network.ActionRequest{Type: "guess", Data: map[string]any{"guess": guess}}, nil
	case "next":
		return network.ActionRequest{Type: "next_round"}, nil
	case "timeup":
		return network.ActionRequest{Type: "time_up"}, nil
	case "end":
		return network.ActionRequest{Type: "end_game"}, nil
	default:
		return network.ActionRequest{}, errUsage
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	player := flag.String("player", "", "player id")
	roomID := flag.String("room", "", "room id to subscribe to")
	flag.Parse()
	if *player == "" || *roomID == "" {
		flag.Usage()
		os.Exit(2)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: url.Values{"player_id": {*player}}.Encode()}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			p, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			if p.MsgID == network.MsgTypeHeartbeat {
				continue
			}
			log.Printf("<- RECV (ID: %d): %s", p.MsgID, string(p.Data))
		}
	}()

	if err := send(c, network.MsgTypeSubscribe, network.SubscribeRequest{RoomID: *roomID}); err != nil {
		log.Fatalf("Subscribe failed: %v", err)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	// Write loop
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, struct{}{}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			action, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if err := send(c, network.MsgTypeGameAction, action); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", action.Type)
		}
	}
}
