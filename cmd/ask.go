package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/liangyuanjiao/opencode-aicodewith-auth/internal/sdk"
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt...]",
	Short: "Send one prompt through the gateway",
	Long:  `Send a single prompt to a catalog model using the vendor SDK for its family, routed through the gateway dispatcher.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringP("model", "m", "gpt-5.3-codex", "model id")
	askCmd.Flags().Int64("max-tokens", 1024, "output token limit for Claude models")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return errors.New("api_key is not set; run 'aicodewith config init'")
	}

	modelFlag, _ := cmd.Flags().GetString("model")
	maxTokens, _ := cmd.Flags().GetInt64("max-tokens")
	prompt := strings.Join(args, " ")
	ctx := cmd.Context()

	client, err := sdk.New(ctx, sdk.Settings{
		APIKey:    cfg.APIKey,
		Transport: rt.Dispatcher,
	})
	if err != nil {
		return err
	}

	id, family := sdk.ModelFamily(rt.Models.Migrate(modelFlag))
	logger.Debug("Sending prompt", "model", id, "family", family)

	var text string
	switch family {
	case sdk.FamilyAnthropic:
		msg, err := client.Anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(id),
			MaxTokens: maxTokens,
			Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		})
		if err != nil {
			return err
		}
		var sb strings.Builder
		for _, block := range msg.Content {
			sb.WriteString(block.Text)
		}
		text = sb.String()
	case sdk.FamilyGoogle:
		resp, err := client.Google.Models.GenerateContent(ctx, id, genai.Text(prompt), nil)
		if err != nil {
			return err
		}
		text = resp.Text()
	case sdk.FamilyResponses:
		resp, err := client.OpenAI.Responses.New(ctx, responses.ResponseNewParams{
			Model: shared.ResponsesModel(id),
			Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(prompt)},
		})
		if err != nil {
			return err
		}
		text = resp.OutputText()
	default:
		resp, err := client.OpenAI.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(id),
			Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
	}

	fmt.Println(text)
	return nil
}
