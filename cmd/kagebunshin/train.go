package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/kagebunshin/internal/gesture"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/training"
)

var trainFlags = map[string]string{
	"train.epochs":        "epochs",
	"train.batch_size":    "batch-size",
	"train.learning_rate": "learning-rate",
	"train.seed":          "seed",
	"train.hidden":        "hidden",
	"log.level":           "log-level",
}

func (c *cli) trainCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the clone seal classifier on the recorded samples",
		Long: "Fit a new classifier to every recorded sample, store it and make it the active model.\n" +
			"The running effect picks it up on its next start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, trainFlags); err != nil {
				return err
			}

			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			svc := training.NewService(s, gesture.NewModelClassifier(), training.Options{
				Train:     c.settings.TrainSettings(),
				ModelPath: out,
			})
			svc.OnEpoch(func(epoch, total int, accuracy float64) {
				if epoch == total || epoch%10 == 0 {
					logging.Info(logging.Fields{"epoch": epoch, "of": total, "accuracy": accuracy}, "training")
				}
			})

			m, err := svc.Train(cmd.Context())
			if err != nil {
				return fmt.Errorf("training failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "model %s: accuracy %.2f%% on %d %s and %d %s samples\n",
				m.ID, m.Accuracy*100, m.Positive, gesture.LabelCloneSign, m.Negative, gesture.LabelNotSign)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int("epochs", 50, "training epochs")
	f.Int("batch-size", 16, "mini-batch size")
	f.Float64("learning-rate", 0.05, "gradient descent step size")
	f.Int64("seed", 1, "shuffle seed")
	f.IntSlice("hidden", nil, "hidden ReLU layer widths, e.g. 64,32 (default: logistic regression)")
	f.String("log-level", "info", "log level")
	f.StringVarP(&out, "out", "o", "", "also write the model to this JSON file")
	return cmd
}
