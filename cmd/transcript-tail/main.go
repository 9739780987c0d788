// Command transcript-tail follows the live transcript of a running
// voxstore service and prints each snapshot to stdout. Useful for
// watching conversations during development without a browser.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
)

func main() {
	url := flag.String("url", "ws://localhost:8000/api/transcription", "Transcript endpoint URL")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()

	fmt.Printf("Following transcript at %s\n", *url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Fatalf("read: %v", err)
		}

		var entries []struct {
			Speaker string `json:"type"`
			Message string `json:"message"`
			Time    string `json:"time"`
		}
		if err := json.Unmarshal(payload, &entries); err != nil {
			log.Printf("skipping malformed snapshot: %v", err)
			continue
		}

		// Each snapshot is the full transcript; print the latest line.
		if len(entries) == 0 {
			fmt.Println("--- transcript cleared ---")
			continue
		}
		last := entries[len(entries)-1]
		fmt.Printf("[%s] %s: %s\n", last.Time, last.Speaker, last.Message)
	}
}
