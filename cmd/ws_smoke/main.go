package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// ws_smoke logs in against a running server, opens the notification stream,
// adds a task over HTTP and prints the frames that arrive.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	token := os.Getenv("TOKEN") // empty in local mode

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("http://127.0.0.1:%s", port)
	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readFrame := func() map[string]any {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read error: %v", err)
			return nil
		}
		log.Printf("got: %s", string(msg))
		var obj map[string]any
		_ = json.Unmarshal(msg, &obj)
		return obj
	}

	if f := readFrame(); f == nil || f["type"] != "ready" {
		log.Fatalf("expected ready frame, got %v", f)
	}

	body, _ := json.Marshal(map[string]string{"title": "smoke test task"})
	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/tasks", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("add task: %v", err)
	}
	res.Body.Close()
	log.Printf("add task status=%d", res.StatusCode)

	// expect a notification and an invalidate frame
	readFrame()
	readFrame()

	log.Println("smoke test finished")
}
