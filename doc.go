/*
Package vignette generates reproducible batches of prompt variants, grades them
against a weighted QC rubric and keeps a curated "best" pick per run, all stored in
one shared document.

# Concept

A run renders one scene card with one technique under the locked core (the prompt
constraints shared by every run). Generation is a pure function of the run identity
and an optional base seed: the same request always yields the same variants, seeds
and prompts. Variants start as draft, become pass or fail once graded, and one
variant per run may be marked best regardless of its score.

# Storage

The whole state is one Document behind a ports.StorageBackend (a JSON file by
default; Redis, SQLite and memory are available). Every write runs through a single
FIFO mutation queue: each mutation reads the committed document fresh, edits a deep
copy, validates it and writes it atomically. Concurrent callers never lose updates
and readers never see a partial document.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/vignette"
		"github.com/aretw0/vignette/pkg/adapters/file"
		"github.com/aretw0/vignette/pkg/domain"
	)

	func main() {
		eng := vignette.New(file.New(".vignette/store.json"))
		ctx := context.Background()

		scene, err := eng.CreateScene(ctx, domain.SceneCard{Name: "Harbor at dawn"})
		if err != nil {
			log.Fatal(err)
		}
		tech, err := eng.CreateTechnique(ctx, domain.Technique{Name: "Dolly in"})
		if err != nil {
			log.Fatal(err)
		}

		res, err := eng.Generate(ctx, vignette.GenerateRequest{
			SceneID:      scene.ID,
			TechniqueID:  tech.ID,
			VariantCount: 4,
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, v := range res.Variants {
			fmt.Println(v.ID, v.Controls.Camera)
		}
	}

Adapters for HTTP (pkg/adapters/http), MCP (pkg/adapters/mcp) and the vignette CLI
(cmd/vignette) only call the Engine.
*/
package vignette
