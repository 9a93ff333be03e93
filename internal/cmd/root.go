package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wrapnoise",
	Short: "Seamlessly tileable gradient noise",
	Long: `wrapnoise generates deterministic, seamlessly wrapping gradient noise for
procedural terrain and maps.

The noise field repeats with a configurable period on each axis, so a rendered
map tessellates without visible seams. Maps can be rendered as a single image,
as a web-map tile pyramid (folder or MBTiles) or served over HTTP.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.String("output-dir", "./tiles", "Output directory for generated tiles")
	flags.Bool("verbose", false, "Enable verbose logging")

	flags.Int("dimension", 2, "Number of noise dimensions")
	flags.Int("octaves", 6, "Number of octaves")
	flags.IntSlice("periods", []int{5, 5}, "Tile period per axis in lattice cells (0 = no wrapping); the default is trimmed to --dimension")
	flags.Bool("unbias", true, "Push values away from zero with a smoothstep contrast curve")
	flags.String("seed", "seed", "Seed; integers are used as-is, other strings are hashed, empty is random")
	flags.String("algorithm", "wrap", "Noise algorithm: wrap (seamless) or perlin (non-wrapping reference)")

	mustBindPersistent := func(key, name string) {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}
	mustBindPersistent("output-dir", "output-dir")
	mustBindPersistent("verbose", "verbose")
	mustBindPersistent("noise.dimension", "dimension")
	mustBindPersistent("noise.octaves", "octaves")
	mustBindPersistent("noise.periods", "periods")
	mustBindPersistent("noise.unbias", "unbias")
	mustBindPersistent("noise.seed", "seed")
	mustBindPersistent("noise.algorithm", "algorithm")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("WRAPNOISE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// bindFlags binds each command flag to its dotted viper key.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}
}
