package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/vignette/internal/cli"
	"github.com/aretw0/vignette/internal/presentation/tui"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/spf13/cobra"
)

func newSceneCmd() *cobra.Command {
	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "Manage scene cards",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a scene card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scene := domain.SceneCard{}
			scene.ID, _ = cmd.Flags().GetString("id")
			scene.Name, _ = cmd.Flags().GetString("name")
			scene.Goal, _ = cmd.Flags().GetString("goal")
			scene.Action, _ = cmd.Flags().GetString("action")
			scene.Environment, _ = cmd.Flags().GetString("environment")
			scene.Lighting, _ = cmd.Flags().GetString("lighting")

			return withApp(cmd, func(app *cli.App) error {
				created, err := app.Engine.CreateScene(cmd.Context(), scene)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}
	addCmd.Flags().String("id", "", "Scene id (generated when omitted)")
	addCmd.Flags().String("name", "", "Scene name")
	addCmd.Flags().String("goal", "", "What the shot must convey")
	addCmd.Flags().String("action", "", "What the character does")
	addCmd.Flags().String("environment", "", "Where it happens")
	addCmd.Flags().String("lighting", "", "Lighting setup")
	_ = addCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scene cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				scenes, err := app.Engine.Scenes(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, len(scenes))
				for i, s := range scenes {
					rows[i] = []string{s.ID, s.Name, s.Goal, s.Environment}
				}
				return tui.WriteMarkdown(cmd.OutOrStdout(), markdownTable([]string{"ID", "Name", "Goal", "Environment"}, rows))
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm SCENE_ID",
		Short: "Remove a scene card and every run generated from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				return app.Engine.DeleteScene(cmd.Context(), args[0])
			})
		},
	}

	sceneCmd.AddCommand(addCmd, listCmd, rmCmd)
	return sceneCmd
}

func newTechniqueCmd() *cobra.Command {
	techniqueCmd := &cobra.Command{
		Use:   "technique",
		Short: "Manage techniques",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a technique",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			technique := domain.Technique{}
			technique.ID, _ = cmd.Flags().GetString("id")
			technique.Name, _ = cmd.Flags().GetString("name")
			technique.Category, _ = cmd.Flags().GetString("category")
			technique.Cue, _ = cmd.Flags().GetString("cue")
			technique.Notes, _ = cmd.Flags().GetString("notes")

			return withApp(cmd, func(app *cli.App) error {
				created, err := app.Engine.CreateTechnique(cmd.Context(), technique)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}
	addCmd.Flags().String("id", "", "Technique id (generated when omitted)")
	addCmd.Flags().String("name", "", "Technique name")
	addCmd.Flags().String("category", "", "Category, e.g. camera or lighting")
	addCmd.Flags().String("cue", "", "Prompt cue")
	addCmd.Flags().String("notes", "", "Free-form notes")
	_ = addCmd.MarkFlagRequired("name")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List techniques",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				techniques, err := app.Engine.Techniques(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, len(techniques))
				for i, t := range techniques {
					rows[i] = []string{t.ID, t.Name, t.Category, t.Cue}
				}
				return tui.WriteMarkdown(cmd.OutOrStdout(), markdownTable([]string{"ID", "Name", "Category", "Cue"}, rows))
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm TECHNIQUE_ID",
		Short: "Remove a technique and every run generated with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				return app.Engine.DeleteTechnique(cmd.Context(), args[0])
			})
		},
	}

	techniqueCmd.AddCommand(addCmd, listCmd, rmCmd)
	return techniqueCmd
}

func newCoreCmd() *cobra.Command {
	coreCmd := &cobra.Command{
		Use:   "core",
		Short: "Manage the locked core shared by every prompt",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the locked core",
		Long:  `Replaces the locked core as a whole. Unset flags become empty; existing prompts are not rewritten.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core := domain.LockedCore{}
			core.CharacterLock, _ = cmd.Flags().GetString("character")
			core.StyleLock, _ = cmd.Flags().GetString("style")
			core.CompositionLock, _ = cmd.Flags().GetString("composition")
			core.NegativeLock, _ = cmd.Flags().GetString("negative")
			policy, _ := cmd.Flags().GetString("text-policy")
			core.TextPolicy = domain.TextPolicy(policy)

			return withApp(cmd, func(app *cli.App) error {
				_, err := app.Engine.ReplaceLockedCore(cmd.Context(), core)
				return err
			})
		},
	}
	setCmd.Flags().String("character", "", "Character lock")
	setCmd.Flags().String("style", "", "Style lock")
	setCmd.Flags().String("composition", "", "Composition lock")
	setCmd.Flags().String("negative", "", "Negative lock")
	setCmd.Flags().String("text-policy", string(domain.TextPolicyNone), "Text policy: no_text, minimal_text or allow_text")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the locked core",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				doc, err := app.Engine.Document(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc.LockedCore)
			})
		},
	}

	coreCmd.AddCommand(setCmd, showCmd)
	return coreCmd
}

// markdownTable renders rows as a Markdown table for tui.WriteMarkdown.
func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}
