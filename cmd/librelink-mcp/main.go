package main

import (
	"context"
	"flag"
	"io/ioutil"
	"time"

	"github.com/amansk/librelink-mcp-server/cache"
	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/amansk/librelink-mcp-server/librelink"
	"github.com/amansk/librelink-mcp-server/mg"
	"github.com/amansk/librelink-mcp-server/poller"
	"github.com/amansk/librelink-mcp-server/tools"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const defaultAddr = ":4242"

var configFile string

func init() {
	flag.StringVar(&configFile, "f", "config.yaml", "config file")
	flag.Parse()
}

func main() {
	logger, _ := zap.NewDevelopment()
	config := defs.Config{Logger: logger}

	file, err := ioutil.ReadFile(configFile)
	if err != nil {
		panic(err)
	}

	if err = yaml.Unmarshal(file, &config); err != nil {
		panic(err)
	}

	if err := config.Glucose.Validate(); err != nil {
		panic(err)
	}

	logger.Debug("loaded config file", zap.String("file", configFile))

	client := librelink.New(config.LibreLink, config.Glucose.Range(), logger)
	source := cache.Wrap(client,
		time.Duration(config.Cache.CurrentTTLSeconds)*time.Second,
		time.Duration(config.Cache.HistoryTTLSeconds)*time.Second,
	)

	if config.Mongo.URI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), defs.TimeoutInterval)
		ms, err := mg.New(ctx, config.Mongo, defs.DefaultDB, logger)
		cancel()
		if err != nil {
			panic(err)
		}

		p := &poller.Poller{Source: source, Store: ms, Logger: logger}
		go p.Run(context.Background(), defs.PollerInterval)
	}

	targets := tools.NewTargetStore(configFile, config)
	registry := tools.BuildRegistry(tools.Deps{Source: source, Targets: targets})

	addr := config.Server.Addr
	if addr == "" {
		addr = defaultAddr
	}

	s := &tools.Server{Registry: registry, Logger: logger}
	if err := s.Run(addr); err != nil {
		panic(err)
	}
}
