package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Shell is a line-oriented operator console over an Engine.
type Shell struct {
	engine    Engine
	registrar VehicleRegistrar
	tracer    trace.Tracer
	scanner   *bufio.Scanner
	out       io.Writer
}

// NewShell builds a shell reading commands from in. registrar and tracer may be nil.
func NewShell(engine Engine, registrar VehicleRegistrar, tracer trace.Tracer, in io.Reader, out io.Writer) *Shell {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("shell")
	}
	return &Shell{
		engine:    engine,
		registrar: registrar,
		tracer:    tracer,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for s.scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, cmdSpan, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, span trace.Span, input string) {
	parts := strings.Fields(input)
	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "spots":
		s.handleSpots(ctx, parts)
	case "available":
		s.handleAvailable(ctx)
	case "register":
		s.handleRegister(ctx, parts)
	case "enter":
		s.handleEnter(ctx, parts)
	case "exit":
		s.handleExit(ctx, parts)
	case "exit_session":
		s.handleExitSession(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "maintenance":
		s.handleMaintenance(ctx, parts)
	case "rate":
		s.handleRate(ctx, parts)
	case "integrity":
		s.handleIntegrity(ctx)
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handleSpots(ctx context.Context, parts []string) {
	var filter SpotFilter
	if len(parts) > 1 {
		filter.Status = SpotStatus(parts[1])
		if !filter.Status.Valid() {
			s.printf("Unknown status: %s\n", parts[1])
			return
		}
	}

	spots, err := s.engine.ListSpots(ctx, filter)
	if err != nil {
		s.printError(err)
		return
	}
	s.printSpots(spots)
}

func (s *Shell) handleAvailable(ctx context.Context) {
	spots, err := s.engine.ListAvailableSpots(ctx)
	if err != nil {
		s.printError(err)
		return
	}
	if len(spots) == 0 {
		s.printf("No spots available\n")
		return
	}
	s.printSpots(spots)
}

func (s *Shell) printSpots(spots []*Spot) {
	s.printf("Spot\tType\tRate\tStatus\n")
	for _, spot := range spots {
		s.printf("%s\t%s\t%s\t%s\n", spot.Number, spot.Type, spot.HourlyRate, spot.Status)
	}
}

func (s *Shell) handleRegister(ctx context.Context, parts []string) {
	if s.registrar == nil {
		s.printf("Vehicle registration is not available\n")
		return
	}
	if len(parts) < 2 || len(parts) > 3 {
		s.printf("Usage: register <license_plate> [car|motorcycle|truck]\n")
		return
	}

	vt := VehicleCar
	if len(parts) == 3 {
		vt = VehicleType(parts[2])
		if !vt.Valid() {
			s.printf("Unknown vehicle type: %s\n", parts[2])
			return
		}
	}

	v, err := s.registrar.RegisterVehicle(ctx, Vehicle{LicensePlate: parts[1], Type: vt})
	if err != nil {
		s.printError(err)
		return
	}
	s.printf("Registered %s as %s\n", v.LicensePlate, v.ID)
}

func (s *Shell) handleEnter(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		s.printf("Usage: enter <license_plate> <spot_number>\n")
		return
	}

	spot, ok := s.spotByNumber(ctx, parts[2])
	if !ok {
		return
	}

	session, err := s.engine.EnterByPlate(ctx, parts[1], spot.ID)
	if err != nil {
		s.printError(err)
		return
	}
	s.printf("Allocated spot %s to %s, session %s\n", spot.Number, NormalizePlate(parts[1]), session.ID)
}

func (s *Shell) handleExit(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.printf("Usage: exit <license_plate>\n")
		return
	}
	session, err := s.engine.ExitByPlate(ctx, parts[1])
	s.printExit(ctx, session, err)
}

func (s *Shell) handleExitSession(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.printf("Usage: exit_session <session_id>\n")
		return
	}
	session, err := s.engine.Exit(ctx, parts[1])
	s.printExit(ctx, session, err)
}

func (s *Shell) printExit(ctx context.Context, session *Session, err error) {
	if session == nil {
		s.printError(err)
		return
	}

	number := session.SpotID
	if spot, spotErr := s.engine.GetSpot(ctx, session.SpotID); spotErr == nil {
		number = spot.Number
	}
	if err != nil {
		s.printf("Session closed on spot %s. Hours: %s Amount: %s\n", number, session.TotalHours, session.TotalAmount)
		s.printf("Warning: %s\n", err.Error())
		return
	}
	s.printf("Spot %s is free. Hours: %s Amount: %s\n", number, session.TotalHours, session.TotalAmount)
}

func (s *Shell) handleStatus(ctx context.Context) {
	sessions, err := s.engine.ListActiveSessions(ctx)
	if err != nil {
		s.printError(err)
		return
	}
	if len(sessions) == 0 {
		s.printf("Parking facility is empty\n")
		return
	}

	s.printf("Spot\tLicense Plate\tEntry Time\n")
	for _, session := range sessions {
		number, plate := session.SpotID, session.VehicleID
		if spot, err := s.engine.GetSpot(ctx, session.SpotID); err == nil {
			number = spot.Number
		}
		if v, err := s.engine.GetVehicle(ctx, session.VehicleID); err == nil {
			plate = v.LicensePlate
		}
		s.printf("%s\t%s\t%s\n", number, plate, session.EntryTime.Format("2006-01-02 15:04"))
	}
}

func (s *Shell) handleMaintenance(ctx context.Context, parts []string) {
	if len(parts) != 3 || (parts[2] != "on" && parts[2] != "off") {
		s.printf("Usage: maintenance <spot_number> on|off\n")
		return
	}

	spot, ok := s.spotByNumber(ctx, parts[1])
	if !ok {
		return
	}

	updated, err := s.engine.SetMaintenance(ctx, spot.ID, parts[2] == "on")
	if err != nil {
		s.printError(err)
		return
	}
	s.printf("Spot %s is %s\n", updated.Number, updated.Status)
}

func (s *Shell) handleRate(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		s.printf("Usage: rate <spot_number> <amount>\n")
		return
	}

	rate, err := ParseMoney(parts[2])
	if err != nil {
		s.printError(err)
		return
	}

	spot, ok := s.spotByNumber(ctx, parts[1])
	if !ok {
		return
	}

	updated, err := s.engine.UpdateRate(ctx, spot.ID, rate)
	if err != nil {
		s.printError(err)
		return
	}
	s.printf("Spot %s rate is %s\n", updated.Number, updated.HourlyRate)
}

func (s *Shell) handleIntegrity(ctx context.Context) {
	report, err := s.engine.CheckIntegrity(ctx)
	if err != nil {
		s.printError(err)
		return
	}
	if report.Healthy() {
		s.printf("OK: %d spots, %d open sessions\n", report.Spots, report.OpenSessions)
		return
	}
	for _, f := range report.Faults {
		s.printf("%s\tspot=%s\tsession=%s\t%s\n", f.Kind, f.SpotID, f.SessionID, f.Detail)
	}
}

func (s *Shell) spotByNumber(ctx context.Context, number string) (*Spot, bool) {
	spots, err := s.engine.ListSpots(ctx, SpotFilter{Number: strings.ToUpper(number)})
	if err != nil {
		s.printError(err)
		return nil, false
	}
	if len(spots) == 0 {
		s.printf("Spot %s not found\n", number)
		return nil, false
	}
	return spots[0], true
}

func (s *Shell) printError(err error) {
	s.printf("Error: %s\n", err.Error())
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
