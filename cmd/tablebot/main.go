// Command tablebot drives a session against a running server: it hosts (or
// joins) a table, seats bot players, plays a number of turns and prints the
// game-over summary.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tabletop/internal/logger"
	"tabletop/internal/model"
	"tabletop/internal/transport/ws"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	pin := flag.String("pin", "", "join this pin instead of hosting a new table")
	players := flag.Int("players", 4, "number of bot players")
	turns := flag.Int("turns", 8, "turns to pass before ending the game")
	flag.Parse()

	logger.Init("info", true)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/v1/ws"}
	if err := run(u.String(), *pin, *players, *turns); err != nil {
		log.Error().Err(err).Msg("tablebot failed")
		os.Exit(1)
	}
}

func run(endpoint, pin string, players, turns int) error {
	if players < 1 {
		return fmt.Errorf("need at least one player")
	}

	bots := make([]*client, 0, players)
	defer func() {
		for _, b := range bots {
			b.close()
		}
	}()
	for i := 0; i < players; i++ {
		c, err := dial(endpoint)
		if err != nil {
			return err
		}
		bots = append(bots, c)
	}
	host := bots[0]

	if pin == "" {
		ack, err := host.call(ws.EvHostGame, map[string]string{"pin": ""})
		if err != nil {
			return err
		}
		pin = ack.Pin
		log.Info().Str("room", ack.RoomID).Str("pin", pin).Msg("hosting table")
	}

	var roomID string
	for i, b := range bots {
		ack, err := b.call(ws.EvJoinGame, map[string]string{"pin": pin, "name": fmt.Sprintf("Bot %d", i+1)})
		if err != nil {
			return err
		}
		roomID = ack.RoomID
	}

	if _, err := host.call(ws.EvStartGame, map[string]string{"roomId": roomID, "firstPlayerId": host.id}); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for t := 0; t < turns; t++ {
		b := bots[t%len(bots)]
		if _, err := b.call(ws.EvUpdateLife, map[string]interface{}{"roomId": roomID, "change": -rng.Intn(6)}); err != nil {
			return err
		}
		if _, err := b.call(ws.EvPassTurn, map[string]string{"roomId": roomID}); err != nil {
			return err
		}
	}

	if _, err := host.call(ws.EvEndGame, map[string]string{"roomId": roomID}); err != nil {
		return err
	}
	over, err := host.await(model.EventGameOver)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(json.RawMessage(over.Payload))
}

type client struct {
	conn    *websocket.Conn
	id      string
	nextAck int64
	backlog []ws.Message
}

func dial(endpoint string) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	c := &client{conn: conn}
	hello, err := c.await(ws.MsgConnected)
	if err != nil {
		conn.Close()
		return nil, err
	}
	var p struct {
		ConnectionID string `json:"connectionId"`
	}
	if err := json.Unmarshal(hello.Payload, &p); err != nil {
		conn.Close()
		return nil, err
	}
	c.id = p.ConnectionID
	return c, nil
}

// call sends an action and waits for its acknowledgement
func (c *client) call(event ws.MessageType, payload interface{}) (*ws.Ack, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.nextAck++
	id := c.nextAck
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(ws.Message{Type: event, AckID: &id, Payload: body}); err != nil {
		return nil, err
	}

	for {
		msg, err := c.read()
		if err != nil {
			return nil, err
		}
		if msg.Type != ws.MsgAck || msg.AckID == nil || *msg.AckID != id {
			c.backlog = append(c.backlog, msg)
			continue
		}
		var ack ws.Ack
		if err := json.Unmarshal(msg.Payload, &ack); err != nil {
			return nil, err
		}
		if !ack.Success {
			return nil, fmt.Errorf("%s rejected: %s (%s)", event, ack.Error, ack.Code)
		}
		return &ack, nil
	}
}

// await returns the next message of the given type, consuming the backlog first
func (c *client) await(msgType ws.MessageType) (ws.Message, error) {
	for i, m := range c.backlog {
		if m.Type == msgType {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return m, nil
		}
	}
	for {
		msg, err := c.read()
		if err != nil {
			return ws.Message{}, err
		}
		if msg.Type == msgType {
			return msg, nil
		}
	}
}

func (c *client) read() (ws.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg ws.Message
	err := c.conn.ReadJSON(&msg)
	return msg, err
}

func (c *client) close() {
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}
