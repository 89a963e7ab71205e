package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	config "github.com/brown-csci1270/bloomdb/pkg/config"
	db "github.com/brown-csci1270/bloomdb/pkg/db"
	logger "github.com/brown-csci1270/bloomdb/pkg/logger"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
	recovery "github.com/brown-csci1270/bloomdb/pkg/recovery"
	repl "github.com/brown-csci1270/bloomdb/pkg/repl"
	snapshot "github.com/brown-csci1270/bloomdb/pkg/snapshot"

	uuid "github.com/google/uuid"
)

// Listens for SIGINT or SIGTERM, checkpoints if durable, and closes the
// database.
func setupCloseHandler(database *db.Database, rm *recovery.Manager) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Sugar.Infof("closehandler invoked")
		if rm != nil {
			if err := rm.Checkpoint(); err != nil {
				logger.Sugar.Errorf("final checkpoint failed: %v", err)
			}
			rm.Close()
		}
		database.Close()
		logger.OnExit()
		os.Exit(0)
	}()
}

// Start listening for connections at port `port`.
func startServer(r *repl.REPL, prompt string, port int) error {
	log := logger.WithServiceName("server")
	// Handle a connection by running the repl on it.
	handleConn := func(c net.Conn) {
		clientId := uuid.New()
		defer c.Close()
		log.Debugw("client connected", "client", clientId, "remote", c.RemoteAddr().String())
		r.Run(c, clientId, prompt)
		log.Debugw("client disconnected", "client", clientId)
	}
	// Start listening for new connections.
	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		return err
	}
	log.Infof("%v server started listening on localhost:%v", config.DBName,
		listener.Addr().(*net.TCPAddr).Port)
	// Handle each connection.
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Warnf("accept: %v", err)
			continue
		}
		go handleConn(conn)
	}
}

// Start the database.
func main() {
	// Set up flags.
	var dbFlag = flag.String("db", "data/", "DB folder")
	var portFlag = flag.Int("p", config.DefaultPort, "port number")
	var promptFlag = flag.Bool("c", true, "use prompt?")
	var serverFlag = flag.Bool("server", false, "serve the REPL over TCP instead of stdin")
	var durableFlag = flag.Bool("durable", false, "log every mutation and recover on startup")
	var directFlag = flag.Bool("directio", false, "use O_DIRECT for snapshot files")
	var memFlag = flag.Int64("maxmemory", config.DefaultMaxMemory, "memory budget in bytes (0 for unbounded)")
	var levelFlag = flag.String("loglevel", config.DefaultLogLevel, "log level: [debug,info,warn,error]")
	flag.Parse()
	if err := logger.New(*levelFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.OnExit()
	// Open the db.
	database, err := db.Open(*dbFlag, memory.NewBudget(*memFlag))
	if err != nil {
		logger.Sugar.Errorf("open %s: %v", *dbFlag, err)
		return
	}
	defer database.Close()
	// Get the right REPL.
	prompt := config.GetPrompt(*promptFlag)
	var r *repl.REPL
	var rm *recovery.Manager
	if *durableFlag {
		opts := snapshot.Options{DirectIO: *directFlag}
		rm, err = recovery.NewRecoveryManager(database, filepath.Join(*dbFlag, config.LogFileName), opts)
		if err != nil {
			logger.Sugar.Errorf("open log: %v", err)
			return
		}
		defer rm.Close()
		// Recover in this case!
		if err = rm.Recover(); err != nil {
			logger.Sugar.Errorf("%v", err)
			logger.Sugar.Errorf("potentially corrupted snapshot or log, unable to recover")
			return
		}
		r = recovery.RecoveryREPL(rm)
	} else {
		r = db.DatabaseRepl(database)
	}
	// Setup close conditions.
	setupCloseHandler(database, rm)
	// Start server if requested, else run REPL here.
	if *serverFlag {
		if err := startServer(r, prompt, *portFlag); err != nil {
			logger.Sugar.Errorf("%v", err)
		}
		return
	}
	r.Run(nil, uuid.New(), prompt)
}
