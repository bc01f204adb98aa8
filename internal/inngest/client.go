package inngest

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
)

// New creates a new InngestClient and registers the match archival workflow.
func New(inngestClient inngestgo.Client) InngestClient {
	c := &client{
		inngestClient: inngestClient,
	}
	c.createMatchEndedFunction()
	return c
}

func (i *client) createMatchEndedFunction() inngestgo.ServableFunction {
	config := inngestgo.FunctionOpts{
		ID:   "match-ended-followup",
		Name: "Match ended followup",
	}
	f, err := inngestgo.CreateFunction(
		i.inngestClient,
		config,
		// trigger (event or cron)
		inngestgo.EventTrigger("live/match.ended", nil),
		// handler function
		func(ctx context.Context, input inngestgo.Input[MatchEndedData]) (any, error) {
			// By wrapping code in steps, it will be retried automatically on failure
			_, err := step.Run(ctx, "log-final-score", func(ctx context.Context) (string, error) {
				log.Info("Match ended",
					"matchID", input.Event.Data.MatchID,
					"team1Goals", input.Event.Data.Team1Goals,
					"team2Goals", input.Event.Data.Team2Goals,
				)
				return "OK", nil
			})
			if err != nil {
				return nil, err
			}

			return "OK", nil
		},
	)
	if err != nil {
		log.Fatal("Failed to create function", "error", err)
	}
	return f
}

func (i *client) Serve() http.Handler {
	return i.inngestClient.Serve()
}

func (i *client) SendEvent(name string, data map[string]any) {
	i.inngestClient.Send(context.Background(), inngestgo.Event{Name: name, Data: data})
}
