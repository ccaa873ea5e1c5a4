package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tavern/internal/config"
	"tavern/internal/conn"
	"tavern/internal/identity"
	"tavern/internal/inspector"
	"tavern/internal/session"
	"tavern/internal/transport"
	"tavern/pkg/logger"
	"tavern/pkg/protocol"
)

// NewPlayCmd creates the play command, the interactive session loop.
func NewPlayCmd() *cobra.Command {
	var (
		engineURL string
		roleFlag  string
		worldID   string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a gameplay session",
		Long: `Play connects to the session gateway and runs an interactive loop.
Plain input is sent as an in-character action; slash commands drive the
approval and challenge workflows. Type /help once connected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if cliCtx == nil {
				return fmt.Errorf("CLI context not initialized")
			}
			cfg := cliCtx.Config

			url := cfg.Engine.URL
			if engineURL != "" {
				url = engineURL
			}
			roleName := cfg.Session.Role
			if roleFlag != "" {
				roleName = roleFlag
			}
			role, err := parseRole(roleName)
			if err != nil {
				return err
			}

			db, err := cliCtx.GetStorage()
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			userID, err := identity.UserID(db)
			if err != nil {
				return fmt.Errorf("resolve user id: %w", err)
			}

			var world *string
			if worldID != "" {
				world = &worldID
			} else if cfg.Session.WorldID != "" {
				w := cfg.Session.WorldID
				world = &w
			}

			client, err := session.NewClient(session.Options{
				Transport:         transport.NewWebSocket(url),
				UserID:            userID,
				Role:              role,
				WorldID:           world,
				HeartbeatInterval: cfg.Session.HeartbeatInterval,
				ReconnectPolicy:   cfg.Reconnect.Policy(),
				EngineConstraint:  cfg.Engine.MinVersion,
				HistoryStore:      db,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			client.OnStateChange(func(s conn.State) {
				fmt.Printf("\n[connection] %s\n> ", s)
			})

			if cfg.Inspector.Enabled {
				insp := inspector.NewServer(cfg.Inspector.Host, cfg.Inspector.Port, client, db)
				insp.Start()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					insp.Stop(ctx)
				}()
			}

			watcher, err := config.WatchFile(cliCtx.ConfigPath, func(updated *config.Config) {
				logger.SetLevel(updated.Log.Level)
			})
			if err != nil {
				logger.Warn().Err(err).Msg("Config watcher unavailable")
			} else {
				defer watcher.Stop()
			}

			fmt.Printf("Connecting to %s as %s...\n", url, role)
			if err := client.Connect(cmd.Context()); err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			lines := make(chan string)
			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					lines <- scanner.Text()
				}
				close(lines)
			}()

			fmt.Println("Connected. Type /help for commands, /quit to leave.")
			for {
				fmt.Print("> ")
				select {
				case <-sigCh:
					fmt.Println("\nLeaving session.")
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if quit := runInput(client, role, strings.TrimSpace(line)); quit {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&engineURL, "url", "", "session gateway websocket URL (overrides config)")
	cmd.Flags().StringVar(&roleFlag, "role", "", "session role: player, dm or spectator (overrides config)")
	cmd.Flags().StringVar(&worldID, "world", "", "world to join (overrides config)")

	return cmd
}

func parseRole(name string) (protocol.Role, error) {
	switch strings.ToLower(name) {
	case "player", "":
		return protocol.RolePlayer, nil
	case "dm", "dungeonmaster", "dungeon_master":
		return protocol.RoleDungeonMaster, nil
	case "spectator":
		return protocol.RoleSpectator, nil
	default:
		return "", fmt.Errorf("unknown role %q (want player, dm or spectator)", name)
	}
}

// runInput executes one line of user input. Returns true to exit.
func runInput(client *session.Client, role protocol.Role, line string) bool {
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		if err := client.SendAction("freeform", "", line); err != nil {
			printErr(err)
		}
		return false
	}

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, command))

	var err error
	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		printHelp(role)
	case "/status":
		printStatus(client)
	case "/roster":
		for _, p := range client.State.Participants() {
			fmt.Printf("  %s (%s)\n", p.Name, p.Role)
		}
	case "/log":
		for _, e := range client.State.Transcript() {
			fmt.Printf("  [%s] %s: %s\n", e.Kind, e.Speaker, e.Text)
		}
	case "/notices":
		for _, n := range client.State.Notices() {
			fmt.Printf("  [%s] %s\n", n.Level, n.Message)
		}
	case "/scene":
		if len(args) < 1 {
			err = fmt.Errorf("usage: /scene <scene-id>")
			break
		}
		err = client.RequestSceneChange(args[0])
	case "/roll":
		if len(args) < 1 {
			err = fmt.Errorf("usage: /roll <value>")
			break
		}
		var n int
		if n, err = strconv.Atoi(args[0]); err != nil {
			err = fmt.Errorf("roll must be a number: %q", args[0])
			break
		}
		err = client.SubmitChallengeRoll(n)
	case "/dismiss":
		err = client.DismissRollResult()
	case "/pending":
		printPending(client)
	case "/approve":
		if len(args) < 1 {
			err = fmt.Errorf("usage: /approve <request-id>")
			break
		}
		err = client.DecideApproval(args[0], protocol.Accept{})
	case "/reject":
		if len(args) < 1 {
			err = fmt.Errorf("usage: /reject <request-id> [feedback]")
			break
		}
		err = client.DecideApproval(args[0], protocol.Reject{
			Feedback: strings.Join(args[1:], " "),
		})
	case "/takeover":
		if len(args) < 2 {
			err = fmt.Errorf("usage: /takeover <request-id> <response>")
			break
		}
		err = client.DecideApproval(args[0], protocol.TakeOver{
			DMResponse: strings.Join(args[1:], " "),
		})
	case "/direct":
		if rest == "" {
			err = fmt.Errorf("usage: /direct <guidance>")
			break
		}
		err = client.SendDirectorialUpdate(rest)
	case "/challenge":
		if len(args) < 2 {
			err = fmt.Errorf("usage: /challenge <challenge-id> <character-id>")
			break
		}
		err = client.TriggerChallenge(args[0], args[1])
	case "/outcomes":
		for _, o := range client.Outcomes.List() {
			fmt.Printf("  %s  %s (%s)\n", o.ResolutionID, o.ChallengeName, o.OutcomeType)
		}
	default:
		err = fmt.Errorf("unknown command %s (try /help)", command)
	}

	if err != nil {
		printErr(err)
	}
	return false
}

func printErr(err error) {
	fmt.Printf("error: %v\n", err)
}

func printStatus(client *session.Client) {
	fmt.Printf("  Connection: %s\n", client.ConnectionState())
	fmt.Printf("  Session:    %s\n", client.State.SessionID())
	fmt.Printf("  Role:       %s\n", client.State.Role())
	fmt.Printf("  Engine:     %s\n", client.State.EngineVersion())
	fmt.Printf("  LLM active: %v\n", client.State.LLMActive())
	fmt.Printf("  Roll state: %s\n", client.Roll.State())
	fmt.Printf("  Pending approvals: %d\n", client.Approvals.PendingCount())
}

func printPending(client *session.Client) {
	pending := client.Approvals.Pending()
	if len(pending) == 0 {
		fmt.Println("  no pending approvals")
		return
	}
	for _, p := range pending {
		fmt.Printf("  %s  %s: %q\n", p.RequestID, p.NPCName, p.ProposedDialogue)
	}
}

func printHelp(role protocol.Role) {
	fmt.Println(`  <text>                    act in character
  /roll <value>             submit a dice roll for the active challenge
  /dismiss                  dismiss the displayed roll result
  /scene <id>               request a scene change
  /status /roster /log /notices /outcomes
  /quit`)
	if role == protocol.RoleDungeonMaster {
		fmt.Println(`  /pending                  list approval requests
  /approve <id>             accept a proposed NPC response
  /reject <id> [feedback]   reject with regeneration feedback
  /takeover <id> <text>     answer as the NPC yourself
  /direct <guidance>        send directorial guidance
  /challenge <id> <char>    trigger a challenge`)
	}
}
