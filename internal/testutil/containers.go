// containers.go
//
// Document and event content service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of eventsdb.
// eventsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// eventsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with eventsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package testutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Default images, overridden by DB_IMAGE and REDIS_IMAGE
const (
	MariaDBImage  = "mariadb:11.4"
	PostgresImage = "postgres:17-alpine"
	RedisImage    = "redis:7-alpine"
)

// Containers holds a database and a Redis container on a private network
type Containers struct {
	Network        *testcontainers.DockerNetwork
	DBContainer    testcontainers.Container
	RedisContainer testcontainers.Container

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	RedisURL   string
}

// Logf receives progress messages
type Logf func(format string, args ...any)

// Terminate stops the containers and removes the network
func (c *Containers) Terminate(ctx context.Context, logf Logf) {
	if c.RedisContainer != nil {
		if err := c.RedisContainer.Terminate(ctx); err != nil {
			logf("Failed to terminate Redis: %v", err)
		}
	}
	if c.DBContainer != nil {
		if err := c.DBContainer.Terminate(ctx); err != nil {
			logf("Failed to terminate database: %v", err)
		}
	}
	if c.Network != nil {
		if err := c.Network.Remove(ctx); err != nil {
			logf("Failed to remove network: %v", err)
		}
	}
}

// Apply points cfg at the containers
func (c *Containers) Apply(cfg *config.Config) {
	cfg.DBType = c.DBType
	cfg.DBHost = c.DBHost
	cfg.DBPort = c.DBPort
	cfg.DBDatabase = c.DBName
	cfg.DBUser = c.DBUser
	cfg.DBPassword = c.DBPassword
	cfg.RedisURL = c.RedisURL
}

// Env lists the containers as environment variables for the server
func (c *Containers) Env() []string {
	return []string{
		"DB_TYPE=" + c.DBType,
		"DB_HOST=" + c.DBHost,
		"DB_PORT=" + c.DBPort,
		"DB_DATABASE=" + c.DBName,
		"DB_USER=" + c.DBUser,
		"DB_PASSWORD=" + c.DBPassword,
		"REDIS_URL=" + c.RedisURL,
	}
}

// StartContainers starts a mysql (or mariadb) or postgres database and a
// Redis cache, waiting until both accept connections
func StartContainers(ctx context.Context, dbType string, logf Logf) (*Containers, error) {
	c := &Containers{
		DBType:     dbType,
		DBName:     "eventsdb",
		DBUser:     "eventsdb",
		DBPassword: strings.ReplaceAll(uuid.NewString(), "-", ""),
	}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create network: %w", err)
	}
	c.Network = nw

	if err := c.startDatabase(ctx, logf); err != nil {
		c.Terminate(ctx, logf)
		return nil, err
	}
	if err := c.startRedis(ctx, logf); err != nil {
		c.Terminate(ctx, logf)
		return nil, err
	}

	logf("DB_HOST=%s DB_PORT=%s", c.DBHost, c.DBPort)
	logf("REDIS_URL=%s", c.RedisURL)
	return c, nil
}

func (c *Containers) startDatabase(ctx context.Context, logf Logf) error {
	var (
		img     string
		dataDir string
		env     map[string]string
		port    nat.Port
		waitFor wait.Strategy
		err     error
	)

	switch c.DBType {
	case "postgres":
		img = envOr("DB_IMAGE", PostgresImage)
		dataDir = "/var/lib/postgresql/data"
		env = map[string]string{
			"POSTGRES_DB":       c.DBName,
			"POSTGRES_USER":     c.DBUser,
			"POSTGRES_PASSWORD": c.DBPassword,
		}
		if port, err = nat.NewPort("tcp", "5432"); err != nil {
			return err
		}
		// postgres restarts once after running the init scripts
		waitFor = wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(port),
		).WithStartupTimeoutDefault(90 * time.Second)
	case "mysql", "mariadb":
		img = envOr("DB_IMAGE", MariaDBImage)
		dataDir = "/var/lib/mysql"
		env = map[string]string{
			"MYSQL_ROOT_PASSWORD": c.DBPassword,
			"MYSQL_DATABASE":      c.DBName,
			"MYSQL_USER":          c.DBUser,
			"MYSQL_PASSWORD":      c.DBPassword,
		}
		if port, err = nat.NewPort("tcp", "3306"); err != nil {
			return err
		}
		waitFor = wait.ForListeningPort(port).WithStartupTimeout(90 * time.Second)
	default:
		return fmt.Errorf("no container for database type %q", c.DBType)
	}

	logImage(ctx, img, logf)

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        img,
			ExposedPorts: []string{string(port)},
			Env:          env,
			WaitingFor:   waitFor,
			Networks:     []string{c.Network.Name},
			NetworkAliases: map[string][]string{
				c.Network.Name: {"db"},
			},
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				hostConfig.Tmpfs = map[string]string{dataDir: "rw"}
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("start database: %w", err)
	}
	c.DBContainer = dbContainer

	if c.DBHost, err = dbContainer.Host(ctx); err != nil {
		return err
	}
	mapped, err := dbContainer.MappedPort(ctx, port)
	if err != nil {
		return err
	}
	c.DBPort = mapped.Port()

	if c.DBType != "postgres" {
		return c.waitForMySQL(ctx)
	}
	return nil
}

// waitForMySQL pings until the server accepts logins, which happens after
// the port first opens
func (c *Containers) waitForMySQL(ctx context.Context) error {
	db, err := sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName))
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		time.Sleep(time.Second)
	}
	return fmt.Errorf("mysql not ready after 30 seconds: %w", err)
}

func (c *Containers) startRedis(ctx context.Context, logf Logf) error {
	port, err := nat.NewPort("tcp", "6379")
	if err != nil {
		return err
	}
	img := envOr("REDIS_IMAGE", RedisImage)
	logImage(ctx, img, logf)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        img,
			ExposedPorts: []string{string(port)},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			Networks:     []string{c.Network.Name},
			NetworkAliases: map[string][]string{
				c.Network.Name: {"redis"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("start redis: %w", err)
	}
	c.RedisContainer = redisContainer

	host, err := redisContainer.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := redisContainer.MappedPort(ctx, port)
	if err != nil {
		return err
	}
	c.RedisURL = fmt.Sprintf("redis://%s:%s/0", host, mapped.Port())
	return nil
}

// logImage reports whether img must be pulled first
func logImage(ctx context.Context, img string, logf Logf) {
	present, err := imageExists(ctx, img)
	switch {
	case err != nil:
		logf("Could not list docker images: %v", err)
	case present:
		logf("Image %s exists, reusing...", img)
	default:
		logf("Image %s does not exist, pulling...", img)
	}
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, summary := range images {
		for _, tag := range summary.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ErrContainersDisabled is returned by ContainersFromEnv when
// TESTCONTAINERS is not set
var ErrContainersDisabled = errors.New("TESTCONTAINERS is not set")

// ContainersFromEnv starts containers for the DB_TYPE named in the
// environment (mysql by default) when TESTCONTAINERS is true
func ContainersFromEnv(ctx context.Context, logf Logf) (*Containers, error) {
	if os.Getenv("TESTCONTAINERS") != "true" {
		return nil, ErrContainersDisabled
	}
	return StartContainers(ctx, envOr("DB_TYPE", "mysql"), logf)
}
