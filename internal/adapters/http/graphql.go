package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	artifactType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Artifact",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.Int},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	artifactGroupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ArtifactGroup",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.Int},
			"name":      &graphql.Field{Type: graphql.String},
			"artifacts": &graphql.Field{Type: graphql.NewList(artifactType)},
		},
	})

	calculationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Calculation",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.Int},
			"calculation_type": &graphql.Field{Type: graphql.String},
			"status":           &graphql.Field{Type: graphql.String},
			"owner_email":      &graphql.Field{Type: graphql.String},
			"created_at":       &graphql.Field{Type: graphql.DateTime},
			"updated_at":       &graphql.Field{Type: graphql.DateTime},
		},
	})

	calculationPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CalculationPage",
		Fields: graphql.Fields{
			"total": &graphql.Field{Type: graphql.Int},
			"items": &graphql.Field{Type: graphql.NewList(calculationType)},
		},
	})

	boxArgs := graphql.FieldConfigArgument{
		"lat1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lng1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lat2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lng2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}
	boxFromArgs := func(args map[string]interface{}) domain.BoundingBox {
		return domain.BoundingBox{
			Lat1: args["lat1"].(float64),
			Lng1: args["lng1"].(float64),
			Lat2: args["lat2"].(float64),
			Lng2: args["lng2"].(float64),
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"calculation": &graphql.Field{
				Type:        calculationType,
				Description: "Get a calculation by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Calculations.Get(p.Context, int64(p.Args["id"].(int)))
				},
			},
			"calculations": &graphql.Field{
				Type:        calculationPageType,
				Description: "List calculations, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					items, total, err := deps.Calculations.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"total": total, "items": items}, nil
				},
			},
			"artifactGroups": &graphql.Field{
				Type:        graphql.NewList(artifactGroupType),
				Description: "Artifact groups produced by a calculation",
				Args: graphql.FieldConfigArgument{
					"calculation_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Calculations.ArtifactGroups(p.Context, int64(p.Args["calculation_id"].(int)))
				},
			},
			"adminLevels": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Admin levels with grid data inside a bounding box",
				Args:        boxArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Forms.AvailableAdminLevels(p.Context, boxFromArgs(p.Args))
				},
			},
			"exportAllowed": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Whether a bounding box is small enough to export",
				Args:        boxArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Exports.ValidateArea(boxFromArgs(p.Args)) == nil, nil
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
