package config

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/pkg/errors"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	MsgFailedToReadConfiguration = "failed to read configuration"
	MsgFailedToReadSecretsFile   = "failed to read secrets file"
	MsgFailedToParseSecretsFile  = "failed to parse secrets file"
)

var (
	ErrFailedToReadConfiguration = errors.New(MsgFailedToReadConfiguration)
	ErrFailedToReadSecretsFile   = errors.New(MsgFailedToReadSecretsFile)
)

type Configuration struct {
	APIPort                  uint16        `envconfig:"API_PORT" default:"8080"`
	PermittedOrigin          string        `envconfig:"PERMITTED_ORIGIN_URL" default:"*"`
	Development              bool          `envconfig:"DEVELOPMENT" default:"false"`
	LogLevel                 zerolog.Level `envconfig:"LOG_LEVEL" default:"1"`
	ApplicationName          string        `envconfig:"APPLICATION_NAME" default:"covidpipe"`
	SecretsPath              string        `envconfig:"SECRETS_PATH" default:"/etc/covidpipe/secrets.yaml"`
	Proxy                    string        `envconfig:"PROXY" default:""`
	ClientTimeoutSeconds     uint          `envconfig:"STANDARD_API_CLIENT_TIMEOUT_SECONDS" default:"10"`
	SearchRetryCount         int           `envconfig:"SEARCH_RETRY_COUNT" default:"3"`
	SearchRetryWaitSeconds   int           `envconfig:"SEARCH_RETRY_WAIT_SECONDS" default:"1"`
	CovidWorkflowName        string        `envconfig:"COVID_WORKFLOW_NAME" default:"SARS-CoV-2 rtPCR v1"`
	RtPCRLowerBound          string        `envconfig:"RTPCR_LOWER_BOUND" default:"10"`
	RtPCRUpperBound          string        `envconfig:"RTPCR_UPPER_BOUND" default:"50"`
	NotificationFreeTextKeys []string      `envconfig:"NOTIFICATION_FREE_TEXT_KEYS" default:"ordering_unit,comment"`
}

// Secrets is the credentials file shared with the deployment tooling.
// The key names are fixed by that contract, do not rename them.
type Secrets struct {
	PartnerBaseURL           string `yaml:"test_partner_base_url"`
	PartnerCodeSystemBaseURL string `yaml:"test_partner_code_system_base_url"`
	PartnerUser              string `yaml:"test_partner_user"`
	PartnerPassword          string `yaml:"test_partner_password"`
	SmiNetUsername           string `yaml:"sminet_username"`
	SmiNetPassword           string `yaml:"sminet_password"`
	SmiNetEnvironment        string `yaml:"sminet_environment"`
	SmiNetLabName            string `yaml:"sminet_lab_name"`
	SmiNetLabNumber          string `yaml:"sminet_lab_number"`
}

func ReadConfiguration() (Configuration, error) {
	var config Configuration
	err := envconfig.Process("", &config)
	if err != nil {
		err = errors.Wrap(err, MsgFailedToReadConfiguration)
		log.Error().Err(err).Msgf("%s\n", ErrFailedToReadConfiguration)
		return config, err
	}
	return config, nil
}

func ReadSecrets(path string) (Secrets, error) {
	var secrets Secrets
	fileContent, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrap(err, MsgFailedToReadSecretsFile)
		log.Error().Err(err).Str("path", path).Msg(MsgFailedToReadSecretsFile)
		return secrets, err
	}
	err = yaml.Unmarshal(fileContent, &secrets)
	if err != nil {
		err = errors.Wrap(err, MsgFailedToParseSecretsFile)
		log.Error().Err(err).Str("path", path).Msg(MsgFailedToParseSecretsFile)
		return secrets, err
	}
	return secrets, nil
}
