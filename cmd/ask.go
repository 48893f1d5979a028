package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/model"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ask"); err != nil {
			return err
		}

		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		question := strings.Join(args, " ")
		asm := env.Assembler.Assemble(ctx, question)
		history := model.History{{Role: model.RoleUser, Content: question}}

		// Respond maps every failure to a user-facing answer; the error is
		// only the underlying cause.
		answer, err := env.Requester.Respond(ctx, history, asm)
		if err != nil {
			zap.L().Warn("completion degraded", zap.Error(err))
		}

		fmt.Println(answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
