// Package config 는 viper 기반 설정 로더입니다.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 는 설정 값에 접근하기 위한 인터페이스입니다.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string
	IsSet(key string) bool
	// Unmarshal 은 전체 설정을 구조체로 디코딩합니다. (mapstructure 태그 사용)
	Unmarshal(out interface{}) error
	// ConfigFile 은 실제로 읽은 설정 파일 경로입니다.
	ConfigFile() string
}

type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *viperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *viperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *viperConfig) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

func (c *viperConfig) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *viperConfig) Unmarshal(out interface{}) error {
	return c.v.Unmarshal(out)
}

func (c *viperConfig) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

const configDir = "configs"

// Options 는 Load 의 기본값을 지정합니다.
type Options struct {
	// Defaults 는 파일과 환경 변수에 없을 때 사용할 값입니다. 키는 점 표기법.
	Defaults map[string]interface{}
}

// Load 는 서비스 설정 파일을 읽습니다.
//
// 탐색 순서: CONFIG_PATH(파일 또는 디렉토리) → configs/{APP_ENV}/{service}.yaml → configs/example/{service}.yaml
// 환경 변수는 {SERVICE}_ 접두사로 덮어쓸 수 있습니다. 예: PAYMENT_ASAAS_API_KEY → asaas.api_key
func Load(serviceName string, opts ...Options) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for _, o := range opts {
		for key, value := range o.Defaults {
			v.SetDefault(key, value)
		}
	}

	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" && filepath.Ext(configPath) != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("설정 파일 로드 실패 (%s): %w", configPath, err)
		}
		return &viperConfig{v: v}, nil
	}
	if configPath == "" {
		configPath = filepath.Join(configDir, env)
	}

	v.SetConfigName(serviceName)
	v.AddConfigPath(configPath)
	v.AddConfigPath(filepath.Join(configDir, "example"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asNotFound(err, &notFound) {
			return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
		// 파일이 없으면 기본값과 환경 변수만으로 동작합니다.
	}

	return &viperConfig{v: v}, nil
}

func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	nf, ok := err.(viper.ConfigFileNotFoundError)
	if ok {
		*target = nf
	}
	return ok
}
