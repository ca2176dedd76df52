package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	bridgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bridge",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"clearance_m": &graphql.Field{Type: graphql.Float},
		},
	})

	clearanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ClearanceCheck",
		Fields: graphql.Fields{
			"has_conflict":       &graphql.Field{Type: graphql.Boolean},
			"near_limit":         &graphql.Field{Type: graphql.Boolean},
			"nearest_bridge":     &graphql.Field{Type: bridgeType},
			"nearest_distance_m": &graphql.Field{Type: graphql.Float},
			"risk_level": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(domain.ClearanceCheck); ok {
						return string(c.Risk()), nil
					}
					return nil, nil
				},
			},
			"risk_message": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if c, ok := p.Source.(domain.ClearanceCheck); ok {
						return c.RiskMessage(), nil
					}
					return nil, nil
				},
			},
		},
	})

	statusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CatalogStatus",
		Fields: graphql.Fields{
			"source":       &graphql.Field{Type: graphql.String},
			"bridges":      &graphql.Field{Type: graphql.Int},
			"skipped_rows": &graphql.Field{Type: graphql.Int},
			"loaded_at":    &graphql.Field{Type: graphql.String},
		},
	})

	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"bridgesNearby": &graphql.Field{
				Type:        graphql.NewList(bridgeType),
				Description: "Find low bridges near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Catalog.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"checkClearance": &graphql.Field{
				Type:        clearanceType,
				Description: "Check a path against the bridge catalog",
				Args: graphql.FieldConfigArgument{
					"path":             &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(pointInput))},
					"vehicle_height_m": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					rawPath, _ := p.Args["path"].([]interface{})
					height, _ := p.Args["vehicle_height_m"].(float64)
					if height <= 0 {
						return nil, fmt.Errorf("vehicle_height_m must be positive")
					}

					path := make([]domain.GeoPoint, 0, len(rawPath))
					for _, raw := range rawPath {
						m, ok := raw.(map[string]interface{})
						if !ok {
							return nil, fmt.Errorf("malformed path point")
						}
						lat, _ := m["lat"].(float64)
						lon, _ := m["lon"].(float64)
						path = append(path, domain.GeoPoint{Lat: lat, Lon: lon})
					}

					check, err := deps.Clearance.CheckPath(p.Context, path, height)
					if err != nil {
						return nil, err
					}
					recordCheck(check)
					return check, nil
				},
			},
			"catalogStatus": &graphql.Field{
				Type:        statusType,
				Description: "Bridge catalog provenance and health",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Catalog.Status(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
