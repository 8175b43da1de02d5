package main

import (
	"context"
	"log"
	"os"

	"GoTaskAgent/app/clients"
	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/knowledge"
	"GoTaskAgent/app/models"
	"GoTaskAgent/app/restclient"
	"GoTaskAgent/app/runtime"
	"GoTaskAgent/app/security"
	"GoTaskAgent/app/storage"
	"GoTaskAgent/app/tools"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("❌ Error loading config %s: %v", configPath, err)
	}

	db, err := storage.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("❌ Error opening database: %v", err)
	}
	defer db.Close()

	guard := security.NewValidator(cfg.Security)
	registry := tools.NewRegistry(guard)
	for _, tool := range tools.Builtins(cfg.Agent.Workspace) {
		if err = registry.Register(tool); err != nil {
			log.Fatalf("❌ Error registering tool %s: %v", tool.Name, err)
		}
	}

	rest := restclient.NewRestClient(cfg.LLM.BaseURL, nil)
	model := models.NewLLMClient(rest, cfg.LLM)

	if cfg.Knowledge.Enabled {
		kb, err := knowledge.NewClient(model, cfg.Knowledge)
		if err != nil {
			log.Fatalf("❌ Error creating knowledge client: %v", err)
		}
		if err = kb.Init(context.Background()); err != nil {
			log.Fatalf("❌ Error initializing knowledge base: %v", err)
		}
		if err = registry.Register(kb.Tool()); err != nil {
			log.Fatalf("❌ Error registering knowledge tool: %v", err)
		}
	}

	rt := runtime.NewRuntime(model, registry, db, cfg.Agent)

	clientRegistry := clients.NewRegistry()
	defer clientRegistry.CloseAll()
	for _, clientCfg := range cfg.Clients {
		client, err := clients.CreateClient(clientCfg)
		if err != nil {
			log.Printf("⚠️ Skipping client %s: %v", clientCfg.Type, err)
			continue
		}
		if err = clientRegistry.Register(client, rt); err != nil {
			log.Printf("⚠️ Error registering client %s: %v", clientCfg.Type, err)
		}
	}

	log.Printf("🚀 Agent runtime started with %d tools. Waiting for tasks...", len(registry.All()))
	rt.Start()
}
