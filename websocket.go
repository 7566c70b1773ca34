package main

import (
	"net/http"

	"ctrlos/internal/ws"
)

var wsHub *ws.Hub

func initWebsocket() {
	wsHub = ws.NewHub()
}

func handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws.Serve(wsHub, w, r)
}
