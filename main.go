package main

import (
	"github.com/yukivision/yukivision/app"
	"github.com/yukivision/yukivision/worker"
	"github.com/yukivision/yukivision/yuki"

	socketio "github.com/googollee/go-socket.io"

	"flag"
	"fmt"
	"log"
	"net/http"
)

func main() {
	addr := flag.String("addr", ":8080", "bind address")
	initdb := flag.Bool("initdb", false, "initialize the database before starting up")
	trainWorkers := flag.Int("train-workers", 1, "number of concurrent training jobs")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	yuki.SeedRand()

	app.Config.TrainWorkers = *trainWorkers
	app.InitDB(*initdb)
	app.TrainPool = worker.NewPool(*trainWorkers)

	server, err := socketio.NewServer(nil)
	if err != nil {
		panic(err)
	}
	server.OnConnect("/", func(s socketio.Conn) error {
		s.Join("jobs")
		return nil
	})
	for _, f := range app.SetupFuncs {
		f(server)
	}

	go server.Serve()
	defer server.Close()
	http.Handle("/socket.io/", server)
	http.Handle("/", app.Router)

	fmt.Print(app.Quickstart)
	log.Printf("starting on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		panic(err)
	}
}
