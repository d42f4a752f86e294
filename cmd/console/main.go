// Command console is the operator console: a small interactive shell for
// testing agents over a peer-to-peer browser-style session or a real
// outbound phone call, editing agent versions, and reviewing past calls.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pateli18/clinicontact/internal/callsession"
	"github.com/pateli18/clinicontact/internal/client"
	"github.com/pateli18/clinicontact/internal/console"
	"github.com/pateli18/clinicontact/internal/observability"
	"github.com/pateli18/clinicontact/internal/playback"
	"github.com/pateli18/clinicontact/internal/types"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type stdoutNotifier struct{}

func (stdoutNotifier) Notify(message string)      { fmt.Println(message) }
func (stdoutNotifier) NotifyError(message string) { fmt.Println("error:", message) }

// phoneAPI narrows the concrete client stream type to what the phone
// controller consumes.
type phoneAPI struct {
	*client.Client
}

func (a phoneAPI) StreamSpeaker(ctx context.Context, phoneCallID uuid.UUID) (callsession.SpeakerStream, error) {
	return a.Client.StreamSpeaker(ctx, phoneCallID)
}

// printingAudioSink stands in for a speaker device: it announces where
// the live audio can be heard instead of playing it.
type printingAudioSink struct{}

func (printingAudioSink) SetSource(url string) { fmt.Println("live audio:", url) }
func (printingAudioSink) ClearSource()         {}

type shell struct {
	api        *client.Client
	controller *callsession.Controller
	persona    *console.PersonaForm
	editor     *console.AgentEditor
}

func main() {
	godotenv.Load("env.local")

	token := os.Getenv("CLINICONTACT_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "CLINICONTACT_TOKEN is not set")
		os.Exit(1)
	}

	logger := observability.NewLogger()
	api := client.New(client.BaseURL(), token)
	notifier := stdoutNotifier{}

	browser := callsession.NewBrowserController(
		api,
		callsession.NewWebRTCDialer(client.ExchangeSDP, logger),
		&callsession.DeviceAcquirer{},
		notifier,
		logger,
	)
	phone := callsession.NewPhoneController(phoneAPI{api}, printingAudioSink{}, notifier, logger)

	s := &shell{
		api:        api,
		controller: callsession.NewController(browser, phone),
		persona:    console.NewPersonaForm(),
		editor:     console.NewAgentEditor(api),
	}

	if err := s.editor.Refresh(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load agents:", err)
	}

	fmt.Println("clinicontact console. type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		s.dispatch(line)
	}
}

func (s *shell) dispatch(line string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	parts := strings.Fields(line)
	command, args := parts[0], parts[1:]

	var err error
	switch command {
	case "help":
		printHelp()
	case "set":
		err = s.setField(args)
	case "unset":
		err = s.unsetField(args)
	case "persona":
		s.printPersona()
	case "agents":
		s.printAgents()
	case "use":
		err = s.useAgent(args)
	case "new-agent":
		err = s.newAgent(ctx, args)
	case "edit":
		err = s.editDraft(ctx, args)
	case "save":
		err = s.saveDraft(ctx)
	case "start":
		err = s.startSession(ctx)
	case "stop":
		s.controller.Browser().Stop(0)
		s.persona.Unfreeze()
	case "call":
		err = s.placeCall(ctx, args)
	case "hangup":
		err = s.hangUp(ctx)
	case "calls":
		err = s.listCalls(ctx)
	case "transcript":
		err = s.showTranscript(ctx, args)
	case "play":
		err = s.playCall(args)
	default:
		fmt.Println("unknown command:", command)
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

func printHelp() {
	fmt.Print(`persona
set <field> <value>    add or change a persona field
unset <field>          remove a persona field

agents
agents                 list agent versions
use <id>               select a version
new-agent <name>       create a new agent
edit <instructions>    draft a new version of the selected agent
save                   publish the draft

sessions
start                  start a browser session with the selected agent
stop                   end the browser session
call <number>          place a phone call with the selected agent
hangup                 end the phone call
calls                  list past calls
transcript <id>        show a call transcript
play <id>              follow a transcript in real time
quit
`)
}

func (s *shell) setField(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <field> <value>")
	}
	return s.persona.Set(args[0], strings.Join(args[1:], " "))
}

func (s *shell) unsetField(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: unset <field>")
	}
	return s.persona.Delete(args[0])
}

func (s *shell) printPersona() {
	values := s.persona.Values()
	for _, key := range s.persona.Keys() {
		fmt.Printf("  %s: %s\n", key, values[key])
	}
}

func (s *shell) printAgents() {
	for _, agent := range s.editor.Agents() {
		marker := " "
		if selected, ok := s.editor.Selected(); ok && selected.ID == agent.ID {
			marker = "*"
		}
		status := "inactive"
		if agent.Active {
			status = "active"
		}
		fmt.Printf("%s %s  %s (%s)\n", marker, agent.ID, agent.Name, status)
	}
}

func (s *shell) useAgent(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <agent-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	return s.editor.Select(id)
}

func (s *shell) newAgent(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: new-agent <name>")
	}
	agent, err := s.editor.CreateAgent(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println("created agent", agent.ID)
	return nil
}

func (s *shell) editDraft(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: edit <instructions>")
	}
	if _, ok := s.editor.Draft(); !ok {
		if _, err := s.editor.NewVersionDraft(); err != nil {
			return err
		}
	}
	if err := s.editor.UpdateInstructions(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	draft, _ := s.editor.Draft()
	fmt.Println("fields:", strings.Join(draft.Fields, ", "))
	for field, value := range draft.SampleValues {
		fmt.Printf("  %s: %s\n", field, value)
	}
	return nil
}

func (s *shell) saveDraft(ctx context.Context) error {
	agent, err := s.editor.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Println("published version", agent.ID)
	return nil
}

func (s *shell) selectedAgentID() (uuid.UUID, error) {
	agent, ok := s.editor.Selected()
	if !ok {
		return uuid.Nil, fmt.Errorf("no agent selected; run 'agents' then 'use <id>'")
	}
	return agent.ID, nil
}

func (s *shell) startSession(ctx context.Context) error {
	agentID, err := s.selectedAgentID()
	if err != nil {
		return err
	}
	userInfo := s.persona.Freeze()
	if err := s.controller.StartBrowserSession(ctx, agentID, userInfo); err != nil {
		s.persona.Unfreeze()
		return err
	}
	fmt.Println("session starting")
	return nil
}

func (s *shell) placeCall(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: call <number>")
	}
	agentID, err := s.selectedAgentID()
	if err != nil {
		return err
	}
	userInfo := s.persona.Freeze()
	callID, err := s.controller.PlaceCall(ctx, args[0], agentID, userInfo)
	if err != nil {
		s.persona.Unfreeze()
		return err
	}
	fmt.Println("call placed:", callID)
	return nil
}

func (s *shell) hangUp(ctx context.Context) error {
	if err := s.controller.Phone().HangUp(ctx); err != nil {
		return err
	}
	s.persona.Unfreeze()
	return nil
}

func (s *shell) listCalls(ctx context.Context) error {
	calls, err := s.api.ListCalls(ctx)
	if err != nil {
		return err
	}
	for _, call := range calls {
		duration := "-"
		if call.Duration != nil {
			duration = fmt.Sprintf("%ds", *call.Duration)
		}
		fmt.Printf("%s  %s  %s  %s  %s\n", call.ID, call.ToPhoneNumber, call.Status, duration, call.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (s *shell) showTranscript(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: transcript <call-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	transcript, err := s.api.Transcript(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("duration: %.1fs, play: %s\n", transcript.TotalDuration, s.api.PlayAudioURL(id))
	printSegments(transcript.SpeakerSegments)
	return nil
}

// playCall walks the transcript in real time, printing each segment as a
// wall clock reaches it. Start the linked audio alongside for a synced
// review.
func (s *shell) playCall(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: play <call-id>")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	transcript, err := s.api.Transcript(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println("audio:", s.api.PlayAudioURL(id))

	started := time.Now()
	highlighter := playback.NewHighlighter(playback.StaticSegments(transcript.SpeakerSegments), func() float64 {
		return time.Since(started).Seconds()
	}, 100*time.Millisecond, func(index int) {
		if index < 0 {
			return
		}
		segment := transcript.SpeakerSegments[index]
		fmt.Printf("[%.1f] %s: %s\n", segment.Start, segment.Speaker, segment.Transcript)
	})
	highlighter.Start()
	defer highlighter.Stop()

	time.Sleep(time.Duration(transcript.TotalDuration * float64(time.Second)))
	return nil
}

func printSegments(segments []types.SpeakerSegment) {
	for _, segment := range segments {
		end := "..."
		if segment.End != nil {
			end = fmt.Sprintf("%.1f", *segment.End)
		}
		fmt.Printf("[%.1f-%s] %s: %s\n", segment.Start, end, segment.Speaker, segment.Transcript)
	}
}
