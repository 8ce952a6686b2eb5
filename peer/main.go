package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"go_lan_transfer/constants"
	"go_lan_transfer/fleet"
	"go_lan_transfer/xlog"
)

// peerTTL is how long a discovered address is still shown by the "peers"
// REPL command. discovery.PeerSet itself never expires entries — this
// filtering is display-only.
const peerTTL = 30 * time.Second

func main() {
	args := argparse.NewParser("peer", constants.Title)

	root := args.String("r", "root", &argparse.Options{Required: true, Help: "Root folder for sending and receiving"})
	pass := args.String("k", "key", &argparse.Options{Required: false, Help: "Shared password gating incoming transfers"})
	bind := args.String("l", "listen", &argparse.Options{Required: false, Help: "Address to bind the TCP acceptor to",
		Default: "0.0.0.0"})
	port := args.Int("p", "port", &argparse.Options{Required: false, Help: "TCP port to listen on (0 picks an ephemeral port)",
		Default: constants.Port})
	dev := args.Flag("v", "verbose", &argparse.Options{Help: "Use a development (console) logger instead of production JSON"})

	if err := args.Parse(os.Args); err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	log, err := xlog.New(*dev)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	rootFolder, err := newOSFolder(*root)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	f, err := fleet.New(fleet.Config{
		BindAddr: *bind,
		Port:     *port,
		Root:     rootFolder,
		Prompts:  newStdioPrompts(),
		Password: *pass,
		Log:      log,
	})
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if err := f.Run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	defer f.Stop()

	fmt.Printf("listening on %s:%d, root %s\n", *bind, f.BoundPort(), *root)
	fmt.Println("commands: send <host> <port> <path>, peers, quit")

	repl(f, log)
}

func repl(f *fleet.Fleet, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "send":
			handleSend(f, fields[1:])
		case "peers":
			handlePeers(f)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func handleSend(f *fleet.Fleet, args []string) {
	if len(args) != 3 {
		fmt.Println("usage: send <host> <port> <path>")
		return
	}
	host := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("invalid port:", args[1])
		return
	}
	path := args[2]

	file, err := pickFile(path)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	tr, err := f.SendFile(context.Background(), host, port, file, 0)
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	fmt.Printf("started outgoing transfer %s to %s:%d\n", tr.ID, host, port)
}

func handlePeers(f *fleet.Fleet) {
	now := time.Now()
	snapshot := f.Peers().Snapshot()
	if len(snapshot) == 0 {
		fmt.Println("no peers discovered yet")
		return
	}
	for addr, lastHeard := range snapshot {
		if now.Sub(lastHeard) > peerTTL {
			continue
		}
		fmt.Printf("%s (last heard %s ago)\n", addr, now.Sub(lastHeard).Round(time.Second))
	}
}
