/*
gwsim is a tick-synchronized world simulation. A simulation contains instances (worlds), each instance owns the
entities inside it and a cell based spatial index of their positions. Entities never span instances, but they can
migrate between instances keeping their EntityID.

Ticks

A fixed-rate scheduler drives the simulation. Every tick runs all instances in ascending instance ID order, and each
instance runs its phases in a fixed order:

	intents      queued intents are applied in FIFO order
	movement     positions are integrated from velocities
	behaviours   Wander, Bounds and Lifetime components act, entity by entity in ID order
	interest     neighbour sets of entities with an Interest component are updated
	verify       the spatial index is checked against the entity store

A tick which takes longer than the tick interval is an overrun. The scheduler runs up to backlog_limit missed ticks
back-to-back and drops the rest, so the simulation never spirals trying to catch up.

The scheduler goroutine is the simulation goroutine. Other goroutines talk to the simulation through Submit, the
scheduler controls and the telemetry bridge.

Debug overlay

After every tick the simulation captures an immutable frame of all instances and publishes it to the telemetry
bridge. Overlay renderers read the newest frame from the debug server, by HTTP at /snapshot or by websocket at /ws,
and never block the simulation.

Run simulation

	cfg := config.Get()
	sim := gwsim.New(cfg, nil)
	id, _ := sim.CreateInstance()
	sim.Populate(id, 1000, "zombie", 1)
	sim.Start()
	sim.Wait()

Configuration

gwsim uses `sim.ini` as the default config file, see sim.ini.sample.

*/
package gwsim
