// Package handlers exposes raid orchestration as dispatcher commands.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/citadel-raid/raidnav/internal/dispatcher"
	"github.com/citadel-raid/raidnav/internal/raid"
	"github.com/citadel-raid/raidnav/internal/util"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// Command names understood by the raid.
const (
	CmdStartWave      = "start-wave"
	CmdDestroy        = "destroy"
	CmdDamage         = "damage"
	CmdInterrupt      = "interrupt"
	CmdClearInterrupt = "clear-interrupt"
	CmdStatus         = "status"
)

// ErrMissingArgument is returned when a command lacks a required argument.
var ErrMissingArgument = errors.New("missing argument")

// Service turns dispatcher events into raid calls.
type Service struct {
	raid *raid.Raid
	log  *slog.Logger
}

// NewService creates a command service for r.
func NewService(r *raid.Raid, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{raid: r, log: logger}
}

// Register installs every raid command on d. opts apply to the mutating
// commands; status always answers synchronously.
func (s *Service) Register(d *dispatcher.Dispatcher, opts ...dispatcher.Option) {
	opts = append(opts, dispatcher.Logged())
	d.Register(CmdStartWave, s.handleStartWave, opts...)
	d.Register(CmdDestroy, s.handleDestroy, opts...)
	d.Register(CmdDamage, s.handleDamage, opts...)
	d.Register(CmdInterrupt, s.handleInterrupt, opts...)
	d.Register(CmdClearInterrupt, s.handleClearInterrupt, opts...)
	d.Register(CmdStatus, s.handleStatus)
}

func (s *Service) handleStartWave(e dispatcher.Event) (any, error) {
	if err := s.raid.Start(); err != nil {
		return nil, fmt.Errorf("failed to start wave: %w", err)
	}
	return s.raid.Status().Wave, nil
}

func (s *Service) handleDestroy(e dispatcher.Event) (any, error) {
	id, err := vesselArg(e, 0)
	if err != nil {
		return nil, err
	}
	if err := s.raid.Destroy(id); err != nil {
		return nil, err
	}
	return "destroyed", nil
}

func (s *Service) handleDamage(e dispatcher.Event) (any, error) {
	id, err := vesselArg(e, 0)
	if err != nil {
		return nil, err
	}
	amount := 1
	if len(e.Args) > 1 {
		amount, err = util.ParsePositiveInt(e.Args[1], "damage amount")
		if err != nil {
			return nil, err
		}
	}
	destroyed, err := s.raid.Damage(id, amount)
	if err != nil {
		return nil, err
	}
	if destroyed {
		s.log.Info("vessel destroyed by damage", "vessel", id, "amount", amount)
	}
	return destroyed, nil
}

func (s *Service) handleInterrupt(e dispatcher.Event) (any, error) {
	id, err := vesselArg(e, 0)
	if err != nil {
		return nil, err
	}
	if err := s.raid.Interrupt(id); err != nil {
		return nil, err
	}
	return "interrupted", nil
}

func (s *Service) handleClearInterrupt(e dispatcher.Event) (any, error) {
	id, err := vesselArg(e, 0)
	if err != nil {
		return nil, err
	}
	if err := s.raid.ClearInterrupt(id); err != nil {
		return nil, err
	}
	return "restored", nil
}

func (s *Service) handleStatus(dispatcher.Event) (any, error) {
	return s.raid.Status(), nil
}

func vesselArg(e dispatcher.Event, i int) (core.VesselID, error) {
	if len(e.Args) <= i {
		return 0, fmt.Errorf("%s needs a vessel id: %w", e.Command, ErrMissingArgument)
	}
	id, err := util.ParseUint16(e.Args[i], "vessel id")
	if err != nil {
		return 0, err
	}
	return core.VesselID(id), nil
}
