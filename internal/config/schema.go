package config

// Config is the typed experiment schema. Every key an experiment file or an
// override may address is declared here; anything else is rejected.
//
// Key names follow the experiment files (upper snake case). The yaml tag is
// used for file and path resolution, the mapstructure tag for the final typed
// decode; both must agree.
type Config struct {
	BaseTaskConfigPath string     `yaml:"BASE_TASK_CONFIG_PATH" mapstructure:"BASE_TASK_CONFIG_PATH"`
	TaskConfig         TaskConfig `yaml:"TASK_CONFIG" mapstructure:"TASK_CONFIG"`
	CmdTrailingOpts    []string   `yaml:"CMD_TRAILING_OPTS" mapstructure:"CMD_TRAILING_OPTS"`
	TrainerName        string     `yaml:"TRAINER_NAME" mapstructure:"TRAINER_NAME"`
	EnvName            string     `yaml:"ENV_NAME" mapstructure:"ENV_NAME"`
	SimulatorGPUID     int        `yaml:"SIMULATOR_GPU_ID" mapstructure:"SIMULATOR_GPU_ID"`
	TorchGPUID         int        `yaml:"TORCH_GPU_ID" mapstructure:"TORCH_GPU_ID"`
	VideoOption        []string   `yaml:"VIDEO_OPTION" mapstructure:"VIDEO_OPTION"`
	TensorboardDir     string     `yaml:"TENSORBOARD_DIR" mapstructure:"TENSORBOARD_DIR"`
	VideoDir           string     `yaml:"VIDEO_DIR" mapstructure:"VIDEO_DIR"`
	TestEpisodeCount   int        `yaml:"TEST_EPISODE_COUNT" mapstructure:"TEST_EPISODE_COUNT"`
	EvalCkptPathDir    string     `yaml:"EVAL_CKPT_PATH_DIR" mapstructure:"EVAL_CKPT_PATH_DIR"`
	NumProcesses       int        `yaml:"NUM_PROCESSES" mapstructure:"NUM_PROCESSES"`
	Sensors            []string   `yaml:"SENSORS" mapstructure:"SENSORS"`
	CheckpointFolder   string     `yaml:"CHECKPOINT_FOLDER" mapstructure:"CHECKPOINT_FOLDER"`
	NumUpdates         int        `yaml:"NUM_UPDATES" mapstructure:"NUM_UPDATES"`
	LogInterval        int        `yaml:"LOG_INTERVAL" mapstructure:"LOG_INTERVAL"`
	LogFile            string     `yaml:"LOG_FILE" mapstructure:"LOG_FILE"`
	CheckpointInterval int        `yaml:"CHECKPOINT_INTERVAL" mapstructure:"CHECKPOINT_INTERVAL"`
	Eval               EvalConfig `yaml:"EVAL" mapstructure:"EVAL"`
	RL                 RLConfig   `yaml:"RL" mapstructure:"RL"`
}

// TaskConfig is the task section. It may be supplied inline or loaded from
// BASE_TASK_CONFIG_PATH.
type TaskConfig struct {
	Seed        int               `yaml:"SEED" mapstructure:"SEED"`
	Environment EnvironmentConfig `yaml:"ENVIRONMENT" mapstructure:"ENVIRONMENT"`
	Dataset     DatasetConfig     `yaml:"DATASET" mapstructure:"DATASET"`
}

type EnvironmentConfig struct {
	MaxEpisodeSteps   int `yaml:"MAX_EPISODE_STEPS" mapstructure:"MAX_EPISODE_STEPS"`
	MaxEpisodeSeconds int `yaml:"MAX_EPISODE_SECONDS" mapstructure:"MAX_EPISODE_SECONDS"`
}

type DatasetConfig struct {
	Type     string `yaml:"TYPE" mapstructure:"TYPE"`
	Split    string `yaml:"SPLIT" mapstructure:"SPLIT"`
	DataPath string `yaml:"DATA_PATH" mapstructure:"DATA_PATH"`
}

type EvalConfig struct {
	Split         string `yaml:"SPLIT" mapstructure:"SPLIT"`
	UseCkptConfig bool   `yaml:"USE_CKPT_CONFIG" mapstructure:"USE_CKPT_CONFIG"`
}

type RLConfig struct {
	RewardMeasure  string    `yaml:"REWARD_MEASURE" mapstructure:"REWARD_MEASURE"`
	SuccessMeasure string    `yaml:"SUCCESS_MEASURE" mapstructure:"SUCCESS_MEASURE"`
	SuccessReward  float64   `yaml:"SUCCESS_REWARD" mapstructure:"SUCCESS_REWARD"`
	SlackReward    float64   `yaml:"SLACK_REWARD" mapstructure:"SLACK_REWARD"`
	PPO            PPOConfig `yaml:"PPO" mapstructure:"PPO"`
}

type PPOConfig struct {
	ClipParam          float64 `yaml:"CLIP_PARAM" mapstructure:"CLIP_PARAM"`
	PPOEpoch           int     `yaml:"PPO_EPOCH" mapstructure:"PPO_EPOCH"`
	NumMiniBatch       int     `yaml:"NUM_MINI_BATCH" mapstructure:"NUM_MINI_BATCH"`
	ValueLossCoef      float64 `yaml:"VALUE_LOSS_COEF" mapstructure:"VALUE_LOSS_COEF"`
	EntropyCoef        float64 `yaml:"ENTROPY_COEF" mapstructure:"ENTROPY_COEF"`
	LR                 float64 `yaml:"LR" mapstructure:"LR"`
	Eps                float64 `yaml:"EPS" mapstructure:"EPS"`
	MaxGradNorm        float64 `yaml:"MAX_GRAD_NORM" mapstructure:"MAX_GRAD_NORM"`
	NumSteps           int     `yaml:"NUM_STEPS" mapstructure:"NUM_STEPS"`
	UseGAE             bool    `yaml:"USE_GAE" mapstructure:"USE_GAE"`
	UseLinearLRDecay   bool    `yaml:"USE_LINEAR_LR_DECAY" mapstructure:"USE_LINEAR_LR_DECAY"`
	UseLinearClipDecay bool    `yaml:"USE_LINEAR_CLIP_DECAY" mapstructure:"USE_LINEAR_CLIP_DECAY"`
	Gamma              float64 `yaml:"GAMMA" mapstructure:"GAMMA"`
	Tau                float64 `yaml:"TAU" mapstructure:"TAU"`
	RewardWindowSize   int     `yaml:"REWARD_WINDOW_SIZE" mapstructure:"REWARD_WINDOW_SIZE"`
	HiddenSize         int     `yaml:"HIDDEN_SIZE" mapstructure:"HIDDEN_SIZE"`
}

// SeedPath is the dotted path of the process seed.
const SeedPath = "TASK_CONFIG.SEED"

// TrainerNamePath is the dotted path of the trainer registry key.
const TrainerNamePath = "TRAINER_NAME"

// Default returns the schema defaults: a full typed value for every key.
func Default() Config {
	return Config{
		BaseTaskConfigPath: "",
		TaskConfig: TaskConfig{
			Seed: 100,
			Environment: EnvironmentConfig{
				MaxEpisodeSteps:   500,
				MaxEpisodeSeconds: 10000000,
			},
			Dataset: DatasetConfig{
				Type:     "PointNav-v1",
				Split:    "train",
				DataPath: "data/datasets/pointnav/{split}/{split}.json.gz",
			},
		},
		CmdTrailingOpts:    []string{},
		TrainerName:        "ppo",
		EnvName:            "NavRLEnv",
		SimulatorGPUID:     0,
		TorchGPUID:         0,
		VideoOption:        []string{"disk", "tensorboard"},
		TensorboardDir:     "tb",
		VideoDir:           "video_dir",
		TestEpisodeCount:   2,
		EvalCkptPathDir:    "data/checkpoints",
		NumProcesses:       16,
		Sensors:            []string{"RGB_SENSOR", "DEPTH_SENSOR"},
		CheckpointFolder:   "data/checkpoints",
		NumUpdates:         10000,
		LogInterval:        10,
		LogFile:            "train.log",
		CheckpointInterval: 50,
		Eval: EvalConfig{
			Split:         "val",
			UseCkptConfig: true,
		},
		RL: RLConfig{
			RewardMeasure:  "distance_to_goal",
			SuccessMeasure: "spl",
			SuccessReward:  2.5,
			SlackReward:    -0.01,
			PPO: PPOConfig{
				ClipParam:          0.2,
				PPOEpoch:           4,
				NumMiniBatch:       16,
				ValueLossCoef:      0.5,
				EntropyCoef:        0.01,
				LR:                 7e-4,
				Eps:                1e-5,
				MaxGradNorm:        0.5,
				NumSteps:           5,
				UseGAE:             true,
				UseLinearLRDecay:   false,
				UseLinearClipDecay: false,
				Gamma:              0.99,
				Tau:                0.95,
				RewardWindowSize:   50,
				HiddenSize:         512,
			},
		},
	}
}

// clone returns a copy that shares no slices with c.
func (c Config) clone() Config {
	out := c
	out.CmdTrailingOpts = cloneStrings(c.CmdTrailingOpts)
	out.VideoOption = cloneStrings(c.VideoOption)
	out.Sensors = cloneStrings(c.Sensors)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
