/*
Package runner drives a single planning run from a terminal or a pipe.

It sanitizes the query, forwards progress events to a Handler while the run is
in flight and hands the final RunResult to the same Handler.

# Key Components

  - Runner: sanitizes input, applies the timeout and runs the planner.
  - TextHandler: human readable progress lines and a rendered report.
  - JSONHandler: one JSON object per line (NDJSON) for scripts.

# Usage

	r := runner.New(engine,
		runner.WithHandler(runner.NewTextHandler(os.Stdout, runner.WithRenderer(render))),
		runner.WithTimeout(5*time.Minute),
	)

	if _, err := r.Run(ctx, query); err != nil {
		log.Fatal(err)
	}
*/
package runner
