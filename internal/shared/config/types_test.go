package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, Username: "root", Password: "pw", Database: "webui"},
			want: "root:pw@tcp(db:3306)/webui?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
		},
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, Username: "pg", Password: "pw", Database: "webui", SSLMode: "disable"},
			want: "host=db port=5432 user=pg password=pw dbname=webui sslmode=disable",
		},
		{
			name: "sqlite",
			cfg:  DatabaseConfig{Driver: "sqlite", Path: "/data/webui.db"},
			want: "/data/webui.db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetDSN())
		})
	}
}
