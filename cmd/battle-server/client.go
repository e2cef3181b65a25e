package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/pokeleague/internal/wsclient"
	"github.com/park285/pokeleague/pkg/battledto"
)

var (
	clientURL   string
	clientUser  int64
	clientToken string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Play a battle from the terminal",
	Long: `client connects to the battle websocket, registers as a user and reads commands from stdin:

  join <battleId> <teamId>
  move <battleId> <move name>
  switch <battleId> <pokemonId>
  quit`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVar(&clientURL, "url", "ws://localhost:8081/ws", "battle websocket URL")
	clientCmd.Flags().Int64Var(&clientUser, "user", 0, "user id to register as")
	clientCmd.Flags().StringVar(&clientToken, "token", "", "signed session token, when the server requires one")
}

func runClient(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ws := wsclient.New(clientURL, 5)
	ws.OnStateChange(func(s wsclient.State) { fmt.Fprintf(out, "[ws] %s\n", s) })
	ws.OnMessage(func(ev *battledto.Event) { printEvent(out, ev) })

	register := func(ctx context.Context) error {
		return ws.Send(ctx, battledto.ClientMessage{Type: battledto.ActionRegister, UserID: clientUser, Token: clientToken})
	}
	ws.OnReconnect(register)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := ws.Connect(ctx)
	if err == nil {
		err = register(ctx)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ws.Close(ctx)
	}()

	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		msg, quit, err := parseCommand(sc.Text())
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if msg == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ws.Send(ctx, *msg); err != nil {
			fmt.Fprintf(out, "send failed: %v\n", err)
		}
		cancel()
	}
	return sc.Err()
}

// parseCommand turns one input line into a client message.
func parseCommand(line string) (*battledto.ClientMessage, bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, false, nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	switch cmd {
	case "quit", "exit":
		return nil, true, nil
	case "join":
		if len(args) != 2 {
			return nil, false, fmt.Errorf("usage: join <battleId> <teamId>")
		}
		ids, err := parseIDs(args)
		if err != nil {
			return nil, false, err
		}
		return &battledto.ClientMessage{Type: battledto.ActionJoinBattle, BattleID: ids[0], TeamID: ids[1]}, false, nil
	case "move":
		if len(args) < 2 {
			return nil, false, fmt.Errorf("usage: move <battleId> <move name>")
		}
		ids, err := parseIDs(args[:1])
		if err != nil {
			return nil, false, err
		}
		return &battledto.ClientMessage{Type: battledto.ActionSelectMove, BattleID: ids[0], Move: strings.Join(args[1:], " ")}, false, nil
	case "switch":
		if len(args) != 2 {
			return nil, false, fmt.Errorf("usage: switch <battleId> <pokemonId>")
		}
		ids, err := parseIDs(args)
		if err != nil {
			return nil, false, err
		}
		return &battledto.ClientMessage{Type: battledto.ActionSwitchPokemon, BattleID: ids[0], PokemonID: ids[1]}, false, nil
	default:
		return nil, false, fmt.Errorf("unknown command %q", cmd)
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids[i] = n
	}
	return ids, nil
}

func printEvent(w io.Writer, ev *battledto.Event) {
	switch ev.Type {
	case battledto.EventUpdateState:
		var st battledto.BattleState
		if err := ev.Decode(&st); err != nil {
			break
		}
		fmt.Fprint(w, renderState(st))
		return
	case battledto.EventBattleError:
		var be battledto.BattleError
		if err := ev.Decode(&be); err == nil {
			fmt.Fprintf(w, "! %s (%s)\n", be.Message, be.Code)
			return
		}
	case battledto.EventBattleEnded:
		var end battledto.BattleEnded
		if err := ev.Decode(&end); err == nil {
			fmt.Fprintf(w, "* %s\n", end.Message)
			return
		}
	}
	fmt.Fprintf(w, "< %s %s\n", ev.Type, string(ev.Payload))
}

func renderState(st battledto.BattleState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== battle %d [%s] turn=%d\n", st.BattleID, st.Status, st.Turn)
	keys := make([]string, 0, len(st.Players))
	for k := range st.Players {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := st.Players[k]
		act := p.ActivePokemon
		moves := make([]string, len(act.Moves))
		for i, mv := range act.Moves {
			moves[i] = mv.Name
		}
		ready := ""
		if p.HasSelected {
			ready = " (ready)"
		}
		fmt.Fprintf(&b, "  team %d %s: %s %d/%d [%s]%s\n", p.TeamID, p.Name, act.Name, act.CurrentHP, p.MaxHP, strings.Join(moves, ", "), ready)
	}
	if n := len(st.Log); n > 0 {
		fmt.Fprintf(&b, "  > %s\n", st.Log[n-1])
	}
	return b.String()
}
