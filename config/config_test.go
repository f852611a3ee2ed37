package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/trackarr/trackarr/config/mocks"
	"go.uber.org/mock/gomock"
)

func TestNew(t *testing.T) {
	t.Run("fail to read in config", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cu := mocks.NewMockConfigUnmarshaler(ctrl)

		wantErr := errors.New("expected testing error")
		cu.EXPECT().ConfigFileUsed().Times(1).Return("fake-config.yaml")
		cu.EXPECT().ReadInConfig().Times(1).Return(wantErr)
		c, err := New(cu)
		if err == nil {
			t.Errorf("TestNew() err = %v, want %v", err, wantErr)
		}

		wantConfig := Config{}
		if !reflect.DeepEqual(c, wantConfig) {
			t.Errorf("TestNew() config = %v, want %v", c, wantConfig)
		}
	})

	t.Run("success with file", func(t *testing.T) {
		cu := viper.New()
		cu.SetConfigFile("./testing/config.yaml")
		c, err := New(cu)
		if err != nil {
			t.Errorf("TestNew() err = %v, want %v", err, nil)
		}

		wantConfig := Config{
			Server:  Server{Port: 8080},
			Storage: Storage{FilePath: "trackarr.db"},
			Providers: Providers{
				TMDB: TMDB{APIKey: "my-tmdb-key"},
				IGDB: IGDB{
					ClientID:     "my-twitch-client",
					ClientSecret: "my-twitch-secret",
				},
			},
			Imports: Imports{
				ScheduleInterval: 6 * time.Hour,
				Trakt:            Trakt{APIKey: "my-trakt-key"},
			},
		}

		if !reflect.DeepEqual(c, wantConfig) {
			t.Errorf("TestNew() config = %+v, want %+v", c, wantConfig)
		}
	})

	t.Run("success without file", func(t *testing.T) {
		cu := viper.New()
		cu.SetConfigFile("")
		cu.SetDefault("server.port", 8080)
		cu.SetDefault("storage.filePath", "trackarr.db")
		c, err := New(cu)
		if err != nil {
			t.Errorf("TestNew() err = %v, want %v", err, nil)
		}

		wantConfig := Config{
			Server:  Server{Port: 8080},
			Storage: Storage{FilePath: "trackarr.db"},
		}

		if !reflect.DeepEqual(c, wantConfig) {
			t.Errorf("TestNew() config = %+v, want %+v", c, wantConfig)
		}
	})
}
