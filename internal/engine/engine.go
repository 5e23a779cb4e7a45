// Package engine implements the rule engine: it owns the rule collection,
// evaluates incoming device events and time ticks against all rules, tracks
// which rules are active, and validates and persists rule mutations.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/go-common/set"

	"github.com/clambin/homehub/internal/device"
	"github.com/clambin/homehub/internal/engine/notifier"
	"github.com/clambin/homehub/internal/rules"
)

// DeviceRegistry is what the engine needs from the device layer: lookups for
// validation, current state values for the state evaluators, and parameter
// verification.
type DeviceRegistry interface {
	FindDevice(device.DeviceID) (device.Device, bool)
	FindDeviceClass(device.DeviceClassID) (device.DeviceClass, bool)
	Devices() []device.Device
	VerifyParams([]device.ParamType, []device.Param) error
	rules.StateProvider
}

// ActionExecutor executes resolved actions asynchronously. Completion is
// reported out of band; the engine does not wait for it.
type ActionExecutor interface {
	Execute(actions []device.Action)
}

// RuleStore persists rules across restarts. Implementations are expected to
// be fast and local; the engine treats writes as fire and forget.
type RuleStore interface {
	Save(rules.Rule) error
	Delete(rules.RuleID) error
	LoadAll() ([]rules.Rule, error)
}

// Engine evaluates automation rules. All exported methods serialize on an
// internal mutex: evaluation and mutation read-modify-write the same rule
// collection and active set.
type Engine struct {
	registry DeviceRegistry
	store    RuleStore
	executor ActionExecutor
	auditLog RuleLog
	notify   notifier.Notifier
	logger   *slog.Logger
	metrics  *engineMetrics

	lock           sync.Mutex
	ruleIDs        []rules.RuleID
	rulesByID      map[rules.RuleID]*rules.Rule
	activeRules    set.Set[rules.RuleID]
	lastEvaluation time.Time
}

// New creates an Engine. store, auditLog and notify may be nil, disabling
// persistence, audit logging and change notifications respectively.
func New(registry DeviceRegistry, store RuleStore, executor ActionExecutor, auditLog RuleLog, notify notifier.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		registry:    registry,
		store:       store,
		executor:    executor,
		auditLog:    auditLog,
		notify:      notify,
		logger:      logger,
		metrics:     newEngineMetrics(),
		rulesByID:   make(map[rules.RuleID]*rules.Rule),
		activeRules: set.New[rules.RuleID](),
	}
}

// Load reads all persisted rules into the engine. Persisted rules are trusted
// and skip the validation performed by AddRule.
func (e *Engine) Load() error {
	if e.store == nil {
		return nil
	}
	stored, err := e.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	for _, rule := range stored {
		e.logger.Debug("loading rule", slog.String("rule", string(rule.ID)), slog.String("name", rule.Name))
		e.appendRule(rule)
	}
	e.logger.Info("rules loaded", slog.Int("count", len(stored)))
	return nil
}

// EvaluateEvent evaluates all enabled rules against the incoming event and
// returns the rules that matched it or changed their active state. The caller
// is responsible for executing the returned rules' actions (or exit actions,
// for rules that went inactive).
func (e *Engine) EvaluateEvent(event device.Event) []rules.Rule {
	e.lock.Lock()
	matched := e.evaluateEvent(event)
	e.lock.Unlock()

	e.metrics.evaluations.WithLabelValues("event").Inc()
	for _, rule := range matched {
		if len(rule.EventDescriptors) == 0 {
			e.notifyChange(notifier.ActiveChanged, rule)
		}
	}
	return matched
}

func (e *Engine) evaluateEvent(event device.Event) []rules.Rule {
	var matched []rules.Rule
	for _, id := range e.ruleIDs {
		rule := e.rulesByID[id]
		if !rule.Enabled {
			continue
		}

		// a state change is mirrored as an event with the state type's id
		if rule.StateEvaluator.ContainsStateType(device.StateTypeID(event.EventTypeID)) {
			rule.SetStatesActive(rule.StateEvaluator.Evaluate(e.registry))
		}

		if len(rule.EventDescriptors) == 0 {
			// continuously evaluated: level-triggered on the combined condition
			if transitioned := e.applyActiveTransition(rule); transitioned {
				matched = append(matched, *rule)
			}
			continue
		}

		// event-triggered: every match re-fires, no active tracking
		if e.eventMatches(rule, event) && rule.StatesActive() && rule.TimeActive() {
			e.logger.Debug("rule triggered by event",
				slog.String("rule", string(id)), slog.String("eventType", string(event.EventTypeID)))
			matched = append(matched, *rule)
		}
	}
	return matched
}

// EvaluateTime evaluates all enabled time-based rules for the given tick and
// returns the rules that triggered or changed their active state.
func (e *Engine) EvaluateTime(now time.Time) []rules.Rule {
	e.lock.Lock()
	matched := e.evaluateTime(now)
	e.lock.Unlock()

	e.metrics.evaluations.WithLabelValues("time").Inc()
	for _, rule := range matched {
		if len(rule.TimeDescriptor.TimeEventItems) == 0 {
			e.notifyChange(notifier.ActiveChanged, rule)
		}
	}
	return matched
}

func (e *Engine) evaluateTime(now time.Time) []rules.Rule {
	if e.lastEvaluation.IsZero() {
		e.lastEvaluation = now.Add(-time.Second)
	}

	var matched []rules.Rule
	for _, id := range e.ruleIDs {
		rule := e.rulesByID[id]
		if !rule.Enabled || rule.TimeDescriptor.IsEmpty() {
			continue
		}

		if len(rule.TimeDescriptor.CalendarItems) > 0 {
			rule.SetTimeActive(rule.TimeDescriptor.ActiveAt(now))

			if len(rule.TimeDescriptor.TimeEventItems) == 0 {
				if transitioned := e.applyActiveTransition(rule); transitioned {
					matched = append(matched, *rule)
				}
			}
		}

		if len(rule.TimeDescriptor.TimeEventItems) > 0 {
			if rule.TimeDescriptor.TriggersBetween(e.lastEvaluation, now) && rule.StatesActive() && rule.TimeActive() {
				e.logger.Debug("rule triggered by time event", slog.String("rule", string(id)))
				matched = append(matched, *rule)
			}
		}
	}

	e.lastEvaluation = now
	return matched
}

// applyActiveTransition moves a level-triggered rule in or out of the active
// set based on its cached time and state conditions. It returns true if the
// rule transitioned.
func (e *Engine) applyActiveTransition(rule *rules.Rule) bool {
	if rule.TimeActive() && rule.StatesActive() {
		if e.activeRules.Contains(rule.ID) {
			return false
		}
		e.logger.Debug("rule active", slog.String("rule", string(rule.ID)))
		rule.SetActive(true)
		e.activeRules.Add(rule.ID)
		return true
	}
	if !e.activeRules.Contains(rule.ID) {
		return false
	}
	e.logger.Debug("rule inactive", slog.String("rule", string(rule.ID)))
	rule.SetActive(false)
	e.activeRules.Remove(rule.ID)
	return true
}

func (e *Engine) eventMatches(rule *rules.Rule, event device.Event) bool {
	var class device.DeviceClass
	if d, ok := e.registry.FindDevice(event.DeviceID); ok {
		class, _ = e.registry.FindDeviceClass(d.ClassID)
	}
	for _, descriptor := range rule.EventDescriptors {
		if descriptor.Matches(event, class) {
			return true
		}
	}
	return false
}

// AddRule validates the rule and, if it passes, registers and persists it.
// The engine state is unchanged if validation fails.
func (e *Engine) AddRule(rule rules.Rule) error {
	e.lock.Lock()
	err := e.addRule(rule)
	e.lock.Unlock()
	if err == nil {
		e.notifyChange(notifier.Added, rule)
	}
	return err
}

func (e *Engine) addRule(rule rules.Rule) error {
	if rule.ID.IsNil() {
		return rules.ErrInvalidRuleID
	}
	if _, ok := e.rulesByID[rule.ID]; ok {
		return fmt.Errorf("%w: duplicate id %q", rules.ErrInvalidRuleID, rule.ID)
	}
	if err := e.validateRule(rule); err != nil {
		e.logger.Warn("rule rejected", slog.String("rule", string(rule.ID)), slog.Any("err", err))
		return err
	}
	e.appendRule(rule)
	e.saveRule(rule)
	e.logger.Debug("rule added", slog.String("rule", string(rule.ID)), slog.String("name", rule.Name))
	return nil
}

// EditRule replaces the rule with the same id. The replacement goes through
// the full AddRule validation; on failure the original rule is restored and
// the validation error returned.
func (e *Engine) EditRule(rule rules.Rule) error {
	e.lock.Lock()
	err := e.editRule(rule)
	e.lock.Unlock()
	if err == nil {
		e.notifyChange(notifier.ConfigurationChanged, rule)
	}
	return err
}

func (e *Engine) editRule(rule rules.Rule) error {
	if rule.ID.IsNil() {
		return rules.ErrInvalidRuleID
	}
	old, ok := e.rulesByID[rule.ID]
	if !ok {
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, rule.ID)
	}
	oldRule := *old

	e.removeRule(rule.ID)
	if err := e.addRule(rule); err != nil {
		// restore the previous version
		e.appendRule(oldRule)
		e.saveRule(oldRule)
		return err
	}
	e.logger.Debug("rule updated", slog.String("rule", string(rule.ID)))
	return nil
}

// RemoveRule removes the rule and its persisted state.
func (e *Engine) RemoveRule(id rules.RuleID) error {
	e.lock.Lock()
	_, ok := e.rulesByID[id]
	if ok {
		e.removeRule(id)
	}
	e.lock.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	e.notifyChange(notifier.Removed, rules.Rule{ID: id})
	e.logger.Debug("rule removed", slog.String("rule", string(id)))
	return nil
}

func (e *Engine) removeRule(id rules.RuleID) {
	for i, ruleID := range e.ruleIDs {
		if ruleID == id {
			e.ruleIDs = append(e.ruleIDs[:i], e.ruleIDs[i+1:]...)
			break
		}
	}
	delete(e.rulesByID, id)
	e.activeRules.Remove(id)
	if e.store != nil {
		if err := e.store.Delete(id); err != nil {
			e.logger.Error("failed to remove persisted rule", slog.String("rule", string(id)), slog.Any("err", err))
		}
	}
}

// EnableRule enables a previously disabled rule. Enabling an enabled rule is
// a no-op.
func (e *Engine) EnableRule(id rules.RuleID) error {
	return e.setEnabled(id, true)
}

// DisableRule disables the rule. Disabled rules are not evaluated.
func (e *Engine) DisableRule(id rules.RuleID) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id rules.RuleID, enabled bool) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[id]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	if rule.Enabled == enabled {
		e.lock.Unlock()
		return nil
	}
	rule.Enabled = enabled
	e.saveRule(*rule)
	changed := *rule
	e.lock.Unlock()

	if e.auditLog != nil {
		e.auditLog.RuleEnabledChanged(changed, enabled)
	}
	e.notifyChange(notifier.ConfigurationChanged, changed)
	e.logger.Debug("rule enabled changed", slog.String("rule", string(id)), slog.Bool("enabled", enabled))
	return nil
}

// ExecuteActions hands the rule's actions to the executor. This is the
// explicit (manual) execution path: there is no triggering event, so rules
// with event-bound action parameters cannot be executed here.
func (e *Engine) ExecuteActions(id rules.RuleID) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[id]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	if !rule.Executable {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrNotExecutable, id)
	}
	for _, action := range rule.Actions {
		if action.IsEventBased() {
			e.lock.Unlock()
			return fmt.Errorf("%w: rule %q", rules.ErrContainsEventBasedAction, id)
		}
	}
	snapshot := *rule
	e.lock.Unlock()

	return e.execute(snapshot, snapshot.Actions, nil, false)
}

// ExecuteExitActions hands the rule's exit actions to the executor.
func (e *Engine) ExecuteExitActions(id rules.RuleID) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[id]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	if !rule.Executable {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrNotExecutable, id)
	}
	if len(rule.ExitActions) == 0 {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrNoExitActions, id)
	}
	snapshot := *rule
	e.lock.Unlock()

	return e.execute(snapshot, snapshot.ExitActions, nil, true)
}

// executeTriggered runs the rule's actions for an automatic trigger,
// resolving event-bound parameters from the triggering event. event is nil
// for time- and state-triggered rules.
func (e *Engine) executeTriggered(id rules.RuleID, event *device.Event) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[id]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	snapshot := *rule
	e.lock.Unlock()

	return e.execute(snapshot, snapshot.Actions, event, false)
}

// executeExitTriggered runs the rule's exit actions for an automatic trigger
// (the rule went inactive). Unlike ExecuteExitActions it does not require the
// rule to be executable.
func (e *Engine) executeExitTriggered(id rules.RuleID) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[id]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, id)
	}
	snapshot := *rule
	e.lock.Unlock()

	return e.execute(snapshot, snapshot.ExitActions, nil, true)
}

func (e *Engine) execute(rule rules.Rule, actions []rules.RuleAction, event *device.Event, exit bool) error {
	resolved := make([]device.Action, 0, len(actions))
	for _, action := range actions {
		a, err := action.Resolve(event)
		if err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		resolved = append(resolved, a)
	}

	if e.auditLog != nil {
		if exit {
			e.auditLog.RuleExitActionsExecuted(rule)
		} else {
			e.auditLog.RuleActionsExecuted(rule)
		}
	}
	kind := "actions"
	if exit {
		kind = "exit_actions"
	}
	e.metrics.executed.WithLabelValues(kind).Add(float64(len(resolved)))
	e.logger.Debug("executing rule actions",
		slog.String("rule", string(rule.ID)), slog.String("kind", kind), slog.Int("count", len(resolved)))
	e.executor.Execute(resolved)
	return nil
}

// FindRules returns the ids of all rules referencing the device, in insertion
// order. The device layer calls this before allowing device removal.
func (e *Engine) FindRules(id device.DeviceID) []rules.RuleID {
	e.lock.Lock()
	defer e.lock.Unlock()
	var offending []rules.RuleID
	for _, ruleID := range e.ruleIDs {
		if e.rulesByID[ruleID].ContainsDevice(id) {
			offending = append(offending, ruleID)
		}
	}
	return offending
}

// DevicesInRules returns all devices referenced by any rule.
func (e *Engine) DevicesInRules() []device.DeviceID {
	e.lock.Lock()
	defer e.lock.Unlock()
	devices := set.New[device.DeviceID]()
	for _, rule := range e.rulesByID {
		for _, d := range rule.EventDescriptors {
			if !d.DeviceID.IsNil() {
				devices.Add(d.DeviceID)
			}
		}
		for _, id := range rule.StateEvaluator.ContainedDevices() {
			devices.Add(id)
		}
		for _, a := range rule.Actions {
			devices.Add(a.DeviceID)
		}
		for _, a := range rule.ExitActions {
			devices.Add(a.DeviceID)
		}
	}
	return devices.ListOrdered()
}

// RemoveDeviceFromRule strips all references to the device from the rule.
// If the stripped rule is no longer consistent (e.g. it lost all its
// actions), it is disabled rather than left armed in a broken state.
func (e *Engine) RemoveDeviceFromRule(ruleID rules.RuleID, deviceID device.DeviceID) error {
	e.lock.Lock()
	rule, ok := e.rulesByID[ruleID]
	if !ok {
		e.lock.Unlock()
		return fmt.Errorf("%w: %q", rules.ErrRuleNotFound, ruleID)
	}

	descriptors := rule.EventDescriptors[:0]
	for _, d := range rule.EventDescriptors {
		if d.DeviceID != deviceID {
			descriptors = append(descriptors, d)
		}
	}
	rule.EventDescriptors = descriptors
	rule.StateEvaluator.RemoveDevice(deviceID)
	rule.Actions = removeDeviceActions(rule.Actions, deviceID)
	rule.ExitActions = removeDeviceActions(rule.ExitActions, deviceID)

	var disabled bool
	if rule.Enabled && !rule.IsConsistent() {
		rule.Enabled = false
		disabled = true
		e.logger.Warn("rule no longer consistent after device removal; disabling",
			slog.String("rule", string(ruleID)), slog.String("device", string(deviceID)))
	}
	e.saveRule(*rule)
	changed := *rule
	e.lock.Unlock()

	if disabled && e.auditLog != nil {
		e.auditLog.RuleEnabledChanged(changed, false)
	}
	e.notifyChange(notifier.ConfigurationChanged, changed)
	return nil
}

func removeDeviceActions(actions []rules.RuleAction, deviceID device.DeviceID) []rules.RuleAction {
	kept := actions[:0]
	for _, a := range actions {
		if a.DeviceID != deviceID {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// Rules returns a copy of all rules, in insertion order.
func (e *Engine) Rules() []rules.Rule {
	e.lock.Lock()
	defer e.lock.Unlock()
	list := make([]rules.Rule, 0, len(e.ruleIDs))
	for _, id := range e.ruleIDs {
		list = append(list, *e.rulesByID[id])
	}
	return list
}

// RuleIDs returns all rule ids in insertion order.
func (e *Engine) RuleIDs() []rules.RuleID {
	e.lock.Lock()
	defer e.lock.Unlock()
	ids := make([]rules.RuleID, len(e.ruleIDs))
	copy(ids, e.ruleIDs)
	return ids
}

// FindRule returns the rule with the given id.
func (e *Engine) FindRule(id rules.RuleID) (rules.Rule, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	rule, ok := e.rulesByID[id]
	if !ok {
		return rules.Rule{}, false
	}
	return *rule, true
}

// Status summarizes the engine state, e.g. for a health endpoint.
type Status struct {
	Rules          int       `json:"rules"`
	Enabled        int       `json:"enabled"`
	Active         int       `json:"active"`
	LastEvaluation time.Time `json:"lastEvaluation"`
}

func (e *Engine) Status() Status {
	e.lock.Lock()
	defer e.lock.Unlock()
	status := Status{
		Rules:          len(e.ruleIDs),
		Active:         len(e.activeRules),
		LastEvaluation: e.lastEvaluation,
	}
	for _, rule := range e.rulesByID {
		if rule.Enabled {
			status.Enabled++
		}
	}
	return status
}

// appendRule registers the rule and seeds its state evaluator cache.
func (e *Engine) appendRule(rule rules.Rule) {
	rule.SetStatesActive(rule.StateEvaluator.Evaluate(e.registry))
	e.rulesByID[rule.ID] = &rule
	e.ruleIDs = append(e.ruleIDs, rule.ID)
}

// saveRule persists the rule. Storage failures are logged, not surfaced: the
// in-memory state remains authoritative until restart.
func (e *Engine) saveRule(rule rules.Rule) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(rule); err != nil {
		e.logger.Error("failed to persist rule", slog.String("rule", string(rule.ID)), slog.Any("err", err))
	}
}

func (e *Engine) notifyChange(event notifier.Event, rule rules.Rule) {
	if e.notify != nil {
		e.notify.Notify(event, rule)
	}
}
