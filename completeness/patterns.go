// ABOUTME: Pattern table describing what a complete deployment of each intent needs.
// ABOUTME: Keyed by intent, then provider: required resource types plus a minimum count.

package completeness

// providerRequirement lists what a given provider needs for one intent.
type providerRequirement struct {
	Required []string
	MinTotal int
}

// pattern describes one recognizable infrastructure intent.
type pattern struct {
	Intent    string
	Keywords  []string
	Providers map[string]providerRequirement
}

// patterns is ordered: the first matching intents all apply, so a prompt
// asking for "a kubernetes cluster with a postgres database" is held to
// both bars.
var patterns = []pattern{
	{
		Intent:   "kubernetes",
		Keywords: []string{"kubernetes", "k8s", "eks", "gke", "aks", "cluster"},
		Providers: map[string]providerRequirement{
			"aws": {
				Required: []string{"aws_eks_cluster", "aws_eks_node_group", "aws_vpc", "aws_subnet", "aws_iam_role"},
				MinTotal: 8,
			},
			"gcp": {
				Required: []string{"google_container_cluster", "google_container_node_pool", "google_compute_network"},
				MinTotal: 6,
			},
			"azure": {
				Required: []string{"azurerm_kubernetes_cluster", "azurerm_resource_group", "azurerm_virtual_network"},
				MinTotal: 5,
			},
		},
	},
	{
		Intent:   "database",
		Keywords: []string{"database", "postgres", "postgresql", "mysql", "mariadb", "rds", "sql"},
		Providers: map[string]providerRequirement{
			"aws": {
				Required: []string{"aws_db_instance", "aws_db_subnet_group", "aws_security_group"},
				MinTotal: 3,
			},
			"gcp": {
				Required: []string{"google_sql_database_instance"},
				MinTotal: 2,
			},
			"azure": {
				Required: []string{"azurerm_resource_group"},
				MinTotal: 2,
			},
		},
	},
	{
		Intent:   "load_balancer",
		Keywords: []string{"load balancer", "load-balancer", "alb", "elb", "nlb"},
		Providers: map[string]providerRequirement{
			"aws": {
				Required: []string{"aws_lb", "aws_lb_target_group", "aws_lb_listener"},
				MinTotal: 4,
			},
			"gcp": {
				Required: []string{"google_compute_forwarding_rule", "google_compute_backend_service"},
				MinTotal: 3,
			},
			"azure": {
				Required: []string{"azurerm_lb"},
				MinTotal: 3,
			},
		},
	},
	{
		Intent:   "container",
		Keywords: []string{"container", "docker", "ecs", "fargate", "cloud run"},
		Providers: map[string]providerRequirement{
			"aws": {
				Required: []string{"aws_ecs_cluster", "aws_ecs_service", "aws_ecs_task_definition"},
				MinTotal: 3,
			},
			"gcp": {
				Required: []string{"google_cloud_run_service"},
				MinTotal: 1,
			},
			"azure": {
				Required: []string{"azurerm_container_group"},
				MinTotal: 2,
			},
		},
	},
	{
		Intent:   "web_server",
		Keywords: []string{"web server", "webserver", "website", "web app", "nginx", "apache"},
		Providers: map[string]providerRequirement{
			"aws": {
				Required: []string{"aws_instance", "aws_security_group"},
				MinTotal: 2,
			},
			"gcp": {
				Required: []string{"google_compute_instance", "google_compute_firewall"},
				MinTotal: 2,
			},
			"azure": {
				Required: []string{"azurerm_linux_virtual_machine", "azurerm_network_security_group"},
				MinTotal: 2,
			},
		},
	},
}
