package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/game-economy/internal/entity"
	"github.com/example/game-economy/internal/repository/filter"
)

// Dynamo stores one entity type per table, keyed by id. Attribute names
// follow the entities' JSON tags so the filter algebra translates the
// same way it does for the other backends. Insert-if-absent and the
// versioned replace both ride on DynamoDB conditional writes.
type Dynamo[E entity.Entity] struct {
	client *dynamodb.Client
	table  string
	enc    *attributevalue.Encoder
	dec    *attributevalue.Decoder
}

func NewDynamo[E entity.Entity](client *dynamodb.Client, table string) *Dynamo[E] {
	return &Dynamo[E]{
		client: client,
		table:  table,
		enc: attributevalue.NewEncoder(func(o *attributevalue.EncoderOptions) {
			o.TagKey = "json"
		}),
		dec: attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
			o.TagKey = "json"
		}),
	}
}

func (d *Dynamo[E]) GetAll(ctx context.Context) ([]E, error) {
	return d.scan(ctx, &dynamodb.ScanInput{TableName: aws.String(d.table)})
}

func (d *Dynamo[E]) Find(ctx context.Context, expr filter.Expr) ([]E, error) {
	b := newExprBuilder(d.enc)
	cond, err := b.translate(expr)
	if err != nil {
		return nil, err
	}
	return d.scan(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(d.table),
		FilterExpression:          aws.String(cond),
		ExpressionAttributeNames:  b.names,
		ExpressionAttributeValues: b.values,
	})
}

func (d *Dynamo[E]) GetOne(ctx context.Context, id string) (E, error) {
	var zero E
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return zero, fmt.Errorf("failed to get item: %w", err)
	}
	if len(out.Item) == 0 {
		return zero, ErrNotFound
	}
	return d.decodeItem(out.Item)
}

func (d *Dynamo[E]) FindOne(ctx context.Context, expr filter.Expr) (E, error) {
	var zero E
	matches, err := d.Find(ctx, expr)
	if err != nil {
		return zero, err
	}
	if len(matches) == 0 {
		return zero, ErrNotFound
	}
	return matches[0], nil
}

func (d *Dynamo[E]) Create(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	item, err := d.encodeItem(e)
	if err != nil {
		return err
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if isConditionalFailure(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (d *Dynamo[E]) Update(ctx context.Context, e E) error {
	if err := validate(e); err != nil {
		return err
	}
	item, err := d.encodeItem(e)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName:                aws.String(d.table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	}
	prior, versioned := priorVersion(e)
	if versioned {
		input.ConditionExpression = aws.String("attribute_exists(#id) AND #ver = :prev")
		input.ExpressionAttributeNames["#ver"] = "version"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", prior)},
		}
	}

	_, err = d.client.PutItem(ctx, input)
	if isConditionalFailure(err) {
		if versioned {
			return ErrVersionConflict
		}
		// Replace of a missing id is a silent no-op.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (d *Dynamo[E]) Remove(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (d *Dynamo[E]) scan(ctx context.Context, input *dynamodb.ScanInput) ([]E, error) {
	var out []E
	for {
		page, err := d.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		for _, item := range page.Items {
			e, err := d.decodeItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (d *Dynamo[E]) encodeItem(e E) (map[string]types.AttributeValue, error) {
	av, err := d.enc.Encode(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return nil, fmt.Errorf("entity did not encode to a map attribute")
	}
	return m.Value, nil
}

func (d *Dynamo[E]) decodeItem(item map[string]types.AttributeValue) (E, error) {
	var zero E
	out := reflect.New(reflect.TypeOf(zero).Elem())
	if err := d.dec.Decode(&types.AttributeValueMemberM{Value: item}, out.Interface()); err != nil {
		return zero, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return out.Interface().(E), nil
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// exprBuilder accumulates expression attribute names and values while a
// filter expression is rendered to DynamoDB syntax.
type exprBuilder struct {
	enc    *attributevalue.Encoder
	names  map[string]string
	values map[string]types.AttributeValue
	n      int
}

func newExprBuilder(enc *attributevalue.Encoder) *exprBuilder {
	return &exprBuilder{
		enc:    enc,
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (b *exprBuilder) translate(expr filter.Expr) (string, error) {
	switch x := expr.(type) {
	case filter.EqExpr:
		name := b.bindName(x.Field)
		value, err := b.bindValue(x.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", name, value), nil
	case filter.InExpr:
		name := b.bindName(x.Field)
		placeholders := make([]string, len(x.Values))
		for i, v := range x.Values {
			placeholder, err := b.bindValue(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = placeholder
		}
		return fmt.Sprintf("%s IN (%s)", name, strings.Join(placeholders, ", ")), nil
	case filter.AndExpr:
		clauses := make([]string, len(x.Exprs))
		for i, sub := range x.Exprs {
			clause, err := b.translate(sub)
			if err != nil {
				return "", err
			}
			clauses[i] = clause
		}
		return strings.Join(clauses, " AND "), nil
	case nil:
		return "", fmt.Errorf("nil filter expression")
	default:
		return "", fmt.Errorf("unsupported filter expression %T", expr)
	}
}

func (b *exprBuilder) bindName(field string) string {
	alias := fmt.Sprintf("#f%d", b.n)
	b.names[alias] = field
	b.n++
	return alias
}

func (b *exprBuilder) bindValue(v any) (string, error) {
	av, err := b.enc.Encode(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter value: %w", err)
	}
	placeholder := fmt.Sprintf(":v%d", len(b.values))
	b.values[placeholder] = av
	return placeholder, nil
}
