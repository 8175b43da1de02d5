package clients

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"GoTaskAgent/app/runtime"
	"GoTaskAgent/app/storage"
	"GoTaskAgent/app/tools"
	"GoTaskAgent/app/utils"
)

var _ Interface = &DiscordClient{}
var _ runtime.Notifier = &DiscordClient{}

type DiscordClient struct {
	Client
	session   *discordgo.Session
	channelID string
	adminID   string
}

func NewDiscordClientFromConfig(cfg map[string]string) (*DiscordClient, error) {
	token := cfg["token"]
	if token == "" {
		return nil, fmt.Errorf("discord client requires a token")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	dc := &DiscordClient{
		session:   session,
		channelID: cfg["channel_id"],
		adminID:   cfg["admin_id"],
	}

	session.AddHandler(dc.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	return dc, nil
}

func (c *DiscordClient) Subscribe(rt *runtime.Runtime) {
	c.runtime = rt

	sendMessage := tools.Tool{
		Name:        "discord_send",
		Description: "Send a text message to a Discord channel.",
		Parameters: tools.Parameter{
			Type: "object",
			Properties: map[string]any{
				"channel_id": map[string]any{
					"type":        "string",
					"description": fmt.Sprintf("Discord channel ID where the message will be sent. Use %s", c.channelID),
				},
				"message": map[string]any{
					"type":        "string",
					"description": "The content of the message to send.",
				},
			},
			Required: []string{"channel_id", "message"},
		},
		HandlerFunc: func(_ context.Context, tool tools.ToolTask) (string, error) {
			params, err := utils.CastAny[discordParameters](tool.Parameters)
			if err != nil {
				return "", err
			}
			if err = c.SendMessage(params.ChannelID, params.Message); err != nil {
				return "", err
			}
			return "Message sent to Discord channel " + params.ChannelID, nil
		},
	}
	if err := rt.Registry().Register(sendMessage); err != nil {
		log.Printf("⚠️ Error registering discord tool: %v", err)
	}
	rt.AddNotifier(c)

	if err := c.Open(); err != nil {
		log.Printf("⚠️ Error opening Discord session: %v", err)
	}
}

type discordParameters struct {
	Message   string `json:"message"`
	ChannelID string `json:"channel_id"`
}

// TaskFinished posts the terminal outcome back to the configured
// channel.
func (c *DiscordClient) TaskFinished(task *storage.Task) {
	if c.channelID == "" {
		return
	}
	var msg string
	switch task.Status {
	case storage.StatusSucceeded:
		msg = fmt.Sprintf("✅ Task %s finished: %s", task.ID, task.FinalResult)
	default:
		msg = fmt.Sprintf("❌ Task %s ended with status %s: %s", task.ID, task.Status, task.FailureCause)
	}
	if err := c.SendMessage(c.channelID, msg); err != nil {
		log.Printf("⚠️ Error notifying Discord: %v", err)
	}
}

func (c *DiscordClient) Open() error {
	if err := c.session.Open(); err != nil {
		return err
	}
	log.Println("Discord client started. Listening for messages...")
	return nil
}

func (c *DiscordClient) Close() error {
	return c.session.Close()
}

func (c *DiscordClient) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if c.adminID != "" && m.Author.ID != c.adminID {
		return
	}
	if !strings.HasPrefix(m.Content, "!task") {
		return
	}

	parts := strings.Fields(m.Content)
	if len(parts) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Usage: !task create <description> | !task cancel [id] | !task status [id]")
		return
	}

	var msg string
	switch parts[1] {
	case "create":
		description := strings.Join(parts[2:], " ")
		if description == "" {
			msg = "Usage: !task create <description>"
			break
		}
		newTask := storage.NewTask(description)
		c.runtime.QueueEvent(runtime.Event{
			Task:        &newTask,
			HandlerFunc: runtime.EventsHandlerFuncDefault[runtime.NewTask],
		})
		msg = "New task created: " + newTask.ID
	case "cancel":
		ev := runtime.Event{HandlerFunc: runtime.EventsHandlerFuncDefault[runtime.CancelTask]}
		if len(parts) > 2 {
			ev.Task = &storage.Task{ID: parts[2]}
			msg = "Cancellation requested for task " + parts[2] + "."
		} else {
			msg = "Cancellation requested for all running tasks."
		}
		c.runtime.QueueEvent(ev)
	case "status":
		if len(parts) > 2 {
			msg = c.taskStatus(parts[2])
		} else {
			msg = c.runtimeStatus()
		}
	default:
		msg = "Unknown task command. Use: create | cancel | status"
	}
	s.ChannelMessageSend(m.ChannelID, msg)
}

// taskStatus reports one task's status and its last few turns.
func (c *DiscordClient) taskStatus(taskID string) string {
	ctx := context.Background()
	task, err := c.runtime.Store().GetTask(ctx, taskID)
	if err != nil {
		return fmt.Sprintf("Task %s not found.", taskID)
	}
	summary := fmt.Sprintf("Task %s: %s after %d iterations", task.ID, task.Status, task.Iterations)
	if task.FailureCause != "" {
		summary += " (" + task.FailureCause + ")"
	}
	history, err := c.runtime.Store().GetHistoryByTaskID(ctx, taskID)
	if err != nil {
		log.Printf("⚠️ Error loading history for task %s: %v", taskID, err)
		return summary
	}
	return summary + storage.HistoryToString(history, 5)
}

// runtimeStatus reports counters, running task IDs, and recent audit
// lines.
func (c *DiscordClient) runtimeStatus() string {
	m := c.runtime.Metrics()
	lines := []string{
		fmt.Sprintf("Tasks: %d started, %d succeeded, %d failed, %d timed out",
			m.TasksStarted, m.TasksSucceeded, m.TasksFailed, m.TasksTimedOut),
		fmt.Sprintf("Calls: %d model, %d tool (%d denied)", m.ModelCalls, m.ToolCalls, m.ToolDenials),
	}
	if running := c.runtime.RunningTasks(); len(running) > 0 {
		lines = append(lines, "Running: "+strings.Join(running, ", "))
	}
	if audit := c.runtime.LastAudit(5); len(audit) > 0 {
		lines = append(lines, "Recent activity:")
		lines = append(lines, audit...)
	}
	return strings.Join(lines, "\n")
}

func (c *DiscordClient) SendMessage(channelID, content string) error {
	if channelID == "" {
		return fmt.Errorf("channelID is empty")
	}
	if _, err := c.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
