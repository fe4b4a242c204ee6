package discovery

import (
	"fmt"
	"log"
	"strconv"

	"github.com/hashicorp/consul/api"

	"placement-service/internal/config"
)

type ServiceRegistry struct {
	client *api.Client
	config *config.Config
}

func NewServiceRegistry(cfg *config.Config) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.ConsulAddress

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	return &ServiceRegistry{
		client: client,
		config: cfg,
	}, nil
}

func (sr *ServiceRegistry) serviceID() string {
	return sr.config.Server.ServiceID + "-http"
}

func (sr *ServiceRegistry) registration() (*api.AgentServiceRegistration, error) {
	httpPort, err := strconv.Atoi(sr.config.Server.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid service port %q: %w", sr.config.Server.Port, err)
	}

	return &api.AgentServiceRegistration{
		ID:      sr.serviceID(),
		Name:    sr.config.Server.ServiceName,
		Port:    httpPort,
		Address: sr.config.Server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", sr.config.Server.ServiceAddress, sr.config.Server.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"placement", "http"},
		Meta: map[string]string{
			"protocol": "http",
		},
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	registration, err := sr.registration()
	if err != nil {
		return err
	}

	if err := sr.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %w", err)
	}

	log.Printf("Successfully registered %s with Consul", registration.ID)
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if err := sr.client.Agent().ServiceDeregister(sr.serviceID()); err != nil {
		return fmt.Errorf("failed to deregister %s: %w", sr.serviceID(), err)
	}
	return nil
}
